package codegen

import (
	"fmt"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
)

// lowerMethodCall implements spec §4.5's fixed List/Set method surface:
// push/add/insertbefore/insertafter/pop/remove/clear/contains, all
// operating on the [length | data_ptr] header via realloc+memmove
// rather than any garbage-collected growth strategy.
func (b *funcBuilder) lowerMethodCall(member *ast.Member, argExprs []ast.Expr) (string, NativeKind, error) {
	recv, _, err := b.lowerExpr(member.X)
	if err != nil {
		return "", KindI64, err
	}
	recvType := member.X.ExprType()
	isSet := recvType.Kind == gultype.Set
	isDict := recvType.Kind == gultype.Dict
	keyIsString := elemIsString(recvType)
	if isDict {
		keyIsString = recvType.Key != nil && recvType.Key.Kind == gultype.String
	}
	slotSize := 8
	if isDict {
		slotSize = 16
	}

	switch member.Name {
	case "len":
		return b.loadHeaderLength(recv), KindI64, nil

	case "push", "add":
		if isDict {
			if len(argExprs) != 2 {
				return "", KindI64, gulerrors.Codegen(b.fn.Name, "%s on a Dict expects (key, value)", member.Name)
			}
			key, _, err := b.lowerExpr(argExprs[0])
			if err != nil {
				return "", KindI64, err
			}
			val, _, err := b.lowerExpr(argExprs[1])
			if err != nil {
				return "", KindI64, err
			}
			b.appendDictPair(recv, key, val)
			return "0", KindI64, nil
		}
		if len(argExprs) != 1 {
			return "", KindI64, gulerrors.Codegen(b.fn.Name, "%s expects one argument", member.Name)
		}
		val, _, err := b.lowerExpr(argExprs[0])
		if err != nil {
			return "", KindI64, err
		}
		if isSet {
			b.lowerSetAdd(recv, val, keyIsString)
		} else {
			b.appendElement(recv, val)
		}
		return "0", KindI64, nil

	case "insertbefore", "insertafter":
		if isDict {
			return "", KindI64, gulerrors.Codegen(b.fn.Name, "Dict has no method %q", member.Name)
		}
		if len(argExprs) != 2 {
			return "", KindI64, gulerrors.Codegen(b.fn.Name, "%s expects (index, value)", member.Name)
		}
		idx, _, err := b.lowerExpr(argExprs[0])
		if err != nil {
			return "", KindI64, err
		}
		val, _, err := b.lowerExpr(argExprs[1])
		if err != nil {
			return "", KindI64, err
		}
		if member.Name == "insertafter" {
			bumped := b.newReg()
			b.emit("%s = add i64 %s, 1", bumped, idx)
			idx = bumped
		}
		b.insertAt(recv, idx, val)
		return "0", KindI64, nil

	case "pop":
		if isDict {
			return "", KindI64, gulerrors.Codegen(b.fn.Name, "Dict has no method %q", member.Name)
		}
		return b.popLast(recv), KindI64, nil

	case "remove":
		if len(argExprs) != 1 {
			return "", KindI64, gulerrors.Codegen(b.fn.Name, "remove expects one argument")
		}
		val, _, err := b.lowerExpr(argExprs[0])
		if err != nil {
			return "", KindI64, err
		}
		return b.removeSlot(recv, val, slotSize, keyIsString), KindI64, nil

	case "clear":
		b.storeHeaderLength(recv, "0")
		return "0", KindI64, nil

	case "contains":
		if len(argExprs) != 1 {
			return "", KindI64, gulerrors.Codegen(b.fn.Name, "contains expects one argument")
		}
		val, _, err := b.lowerExpr(argExprs[0])
		if err != nil {
			return "", KindI64, err
		}
		return b.scanSlot(recv, val, slotSize, keyIsString), KindI64, nil

	default:
		return "", KindI64, gulerrors.Codegen(b.fn.Name, "method %q has no native lowering", member.Name)
	}
}

func elemIsString(t gultype.Type) bool {
	return t.Elem != nil && t.Elem.Kind == gultype.String
}

// appendElement grows the data region by one slot via realloc and
// stores val at the new last position, then bumps the header length.
func (b *funcBuilder) appendElement(header, val string) {
	length := b.loadHeaderLength(header)
	data := b.loadHeaderData(header)
	newLen := b.newReg()
	b.emit("%s = add i64 %s, 1", newLen, length)
	newBytes := b.newReg()
	b.emit("%s = mul i64 %s, 8", newBytes, newLen)
	newData := b.newReg()
	b.emit("%s = call i8* @realloc(i8* %s, i64 %s)", newData, data, newBytes)
	slot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", slot, newData, b.mul8(length))
	b.emit("store i64 %s, i8* %s", val, slot)
	b.storeHeaderData(header, newData)
	b.storeHeaderLength(header, newLen)
}

func (b *funcBuilder) mul8(reg string) string {
	out := b.newReg()
	b.emit("%s = mul i64 %s, 8", out, reg)
	return out
}

// lowerSetAdd only appends when the value is not already present,
// preserving Set's no-duplicates invariant.
func (b *funcBuilder) lowerSetAdd(header, val string, keyIsString bool) {
	present := b.scanSlot(header, val, 8, keyIsString)
	addLbl := b.newLabel("set_add.do")
	skipLbl := b.newLabel("set_add.skip")
	doneLbl := b.newLabel("set_add.done")
	cond := b.newReg()
	b.emit("%s = icmp eq i64 %s, 0", cond, present)
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cond, addLbl, skipLbl))

	b.startBlock(addLbl)
	b.appendElement(header, val)
	b.cur.terminate("br label %" + doneLbl)

	b.startBlock(skipLbl)
	b.cur.terminate("br label %" + doneLbl)

	b.startBlock(doneLbl)
}

// insertAt grows by one slot, memmoves the tail one slot forward to
// open a gap at idx, and stores val into the gap.
func (b *funcBuilder) insertAt(header, idx, val string) {
	length := b.loadHeaderLength(header)
	data := b.loadHeaderData(header)
	newLen := b.newReg()
	b.emit("%s = add i64 %s, 1", newLen, length)
	newBytes := b.newReg()
	b.emit("%s = mul i64 %s, 8", newBytes, newLen)
	newData := b.newReg()
	b.emit("%s = call i8* @realloc(i8* %s, i64 %s)", newData, data, newBytes)

	gapSlot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", gapSlot, newData, b.mul8(idx))
	tailSrc := b.newReg()
	idxPlus1 := b.newReg()
	b.emit("%s = add i64 %s, 1", idxPlus1, idx)
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", tailSrc, newData, b.mul8(idx))
	tailDst := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", tailDst, newData, b.mul8(idxPlus1))
	tailCount := b.newReg()
	b.emit("%s = sub i64 %s, %s", tailCount, length, idx)
	tailBytes := b.newReg()
	b.emit("%s = mul i64 %s, 8", tailBytes, tailCount)
	b.emit("call i8* @memmove(i8* %s, i8* %s, i64 %s)", tailDst, tailSrc, tailBytes)

	b.emit("store i64 %s, i8* %s", val, gapSlot)
	b.storeHeaderData(header, newData)
	b.storeHeaderLength(header, newLen)
}

// popLast loads and returns the final element, shrinking the stored
// length in place (the backing allocation is left oversized, matching
// a grow-only realloc strategy).
func (b *funcBuilder) popLast(header string) string {
	length := b.loadHeaderLength(header)
	data := b.loadHeaderData(header)
	lastIdx := b.newReg()
	b.emit("%s = sub i64 %s, 1", lastIdx, length)
	slot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", slot, data, b.mul8(lastIdx))
	val := b.newReg()
	b.emit("%s = load i64, i8* %s", val, slot)
	b.storeHeaderLength(header, lastIdx)
	return val
}

// appendDictPair grows a Dict's 16-byte-pair data region by one slot via
// realloc and stores key/val at the new last pair, then bumps the header
// length, which for a Dict counts pairs rather than bytes (spec §4.5:
// "dict, two writes... at len·16 and len·16+8").
func (b *funcBuilder) appendDictPair(header, key, val string) {
	length := b.loadHeaderLength(header)
	data := b.loadHeaderData(header)
	newLen := b.newReg()
	b.emit("%s = add i64 %s, 1", newLen, length)
	newBytes := b.newReg()
	b.emit("%s = mul i64 %s, 16", newBytes, newLen)
	newData := b.newReg()
	b.emit("%s = call i8* @realloc(i8* %s, i64 %s)", newData, data, newBytes)

	pairOffset := b.newReg()
	b.emit("%s = mul i64 %s, 16", pairOffset, length)
	keySlot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", keySlot, newData, pairOffset)
	b.emit("store i64 %s, i8* %s", key, keySlot)
	valSlot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 8", valSlot, keySlot)
	b.emit("store i64 %s, i8* %s", val, valSlot)

	b.storeHeaderData(header, newData)
	b.storeHeaderLength(header, newLen)
}

// scanSlot and removeSlot both walk the data region slotSize bytes at a
// time, comparing each slot's leading 8 bytes with strcmp (String keys)
// or icmp eq (otherwise): slotSize 8 for a flat List/Set element, 16 for
// a Dict's key/value pair (only the key half, at the pair's start, is
// ever compared), mirroring lowerDictScan's key-compare rule.
func (b *funcBuilder) scanSlot(header, val string, slotSize int, isString bool) string {
	length := b.loadHeaderLength(header)
	data := b.loadHeaderData(header)

	idxSlot := b.allocSlot(b.newLabel("contains_idx"), KindI64)
	b.store(idxSlot, "0")
	foundSlot := b.allocSlot(b.newLabel("contains_found"), KindI64)
	b.store(foundSlot, "0")

	headerLbl := b.newLabel("contains.header")
	bodyLbl := b.newLabel("contains.body")
	hitLbl := b.newLabel("contains.hit")
	nextLbl := b.newLabel("contains.next")
	doneLbl := b.newLabel("contains.done")

	b.cur.terminate("br label %" + headerLbl)
	b.startBlock(headerLbl)
	idx := b.load(idxSlot)
	cont := b.newReg()
	b.emit("%s = icmp slt i64 %s, %s", cont, idx, length)
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cont, bodyLbl, doneLbl))

	b.startBlock(bodyLbl)
	offset := b.newReg()
	b.emit("%s = mul i64 %s, %d", offset, idx, slotSize)
	slot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", slot, data, offset)
	elem := b.newReg()
	b.emit("%s = load i64, i8* %s", elem, slot)
	eq := b.newReg()
	if isString {
		cmp := b.newReg()
		b.emit("%s = call i32 @strcmp(i8* %s, i8* %s)", cmp, elem, val)
		b.emit("%s = icmp eq i32 %s, 0", eq, cmp)
	} else {
		b.emit("%s = icmp eq i64 %s, %s", eq, elem, val)
	}
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", eq, hitLbl, nextLbl))

	b.startBlock(hitLbl)
	b.store(foundSlot, "1")
	b.cur.terminate("br label %" + doneLbl)

	b.startBlock(nextLbl)
	incremented := b.newReg()
	b.emit("%s = add i64 %s, 1", incremented, idx)
	b.store(idxSlot, incremented)
	b.cur.terminate("br label %" + headerLbl)

	b.startBlock(doneLbl)
	return b.load(foundSlot)
}

// removeSlot finds the first slotSize-wide slot whose key matches val
// and memmoves the tail back one slot to close the gap, decrementing the
// stored length; it returns 1 on hit, 0 on miss, matching the found flag
// the interpreter's applySetMethod/applyDictMethod "remove" returns (the
// interpreter's applyListMethod "remove" takes an index and returns the
// removed element instead).
func (b *funcBuilder) removeSlot(header, val string, slotSize int, isString bool) string {
	length := b.loadHeaderLength(header)
	data := b.loadHeaderData(header)

	idxSlot := b.allocSlot(b.newLabel("remove_idx"), KindI64)
	b.store(idxSlot, "0")
	foundSlot := b.allocSlot(b.newLabel("remove_found"), KindI64)
	b.store(foundSlot, "0")

	headerLbl := b.newLabel("remove.header")
	bodyLbl := b.newLabel("remove.body")
	hitLbl := b.newLabel("remove.hit")
	nextLbl := b.newLabel("remove.next")
	doneLbl := b.newLabel("remove.done")

	b.cur.terminate("br label %" + headerLbl)
	b.startBlock(headerLbl)
	idx := b.load(idxSlot)
	cont := b.newReg()
	b.emit("%s = icmp slt i64 %s, %s", cont, idx, length)
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cont, bodyLbl, doneLbl))

	b.startBlock(bodyLbl)
	offset := b.newReg()
	b.emit("%s = mul i64 %s, %d", offset, idx, slotSize)
	slot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", slot, data, offset)
	elem := b.newReg()
	b.emit("%s = load i64, i8* %s", elem, slot)
	eq := b.newReg()
	if isString {
		cmp := b.newReg()
		b.emit("%s = call i32 @strcmp(i8* %s, i8* %s)", cmp, elem, val)
		b.emit("%s = icmp eq i32 %s, 0", eq, cmp)
	} else {
		b.emit("%s = icmp eq i64 %s, %s", eq, elem, val)
	}
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", eq, hitLbl, nextLbl))

	b.startBlock(hitLbl)
	idxPlus1 := b.newReg()
	b.emit("%s = add i64 %s, 1", idxPlus1, idx)
	tailSrcOffset := b.newReg()
	b.emit("%s = mul i64 %s, %d", tailSrcOffset, idxPlus1, slotSize)
	tailSrc := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", tailSrc, data, tailSrcOffset)
	tailCount := b.newReg()
	b.emit("%s = sub i64 %s, %s", tailCount, length, idxPlus1)
	tailBytes := b.newReg()
	b.emit("%s = mul i64 %s, %d", tailBytes, tailCount, slotSize)
	b.emit("call i8* @memmove(i8* %s, i8* %s, i64 %s)", slot, tailSrc, tailBytes)
	newLen := b.newReg()
	b.emit("%s = sub i64 %s, 1", newLen, length)
	b.storeHeaderLength(header, newLen)
	b.store(foundSlot, "1")
	b.cur.terminate("br label %" + doneLbl)

	b.startBlock(nextLbl)
	incremented := b.newReg()
	b.emit("%s = add i64 %s, 1", incremented, idx)
	b.store(idxSlot, incremented)
	b.cur.terminate("br label %" + headerLbl)

	b.startBlock(doneLbl)
	return b.load(foundSlot)
}
