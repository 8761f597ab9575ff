package codegen

import (
	"fmt"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
)

// headerSize is the fixed 16-byte [length | data_ptr] heap object
// header spec §4.5 describes for List/Set/Dict values.
const headerSize = 16

// allocBytes emits a malloc of n bytes, substituting 8 for a
// requested 0 (spec §4.5: "malloc(0) is replaced by malloc(8)").
func (b *funcBuilder) allocBytes(n int) string {
	if n == 0 {
		n = 8
	}
	reg := b.newReg()
	b.emit("%s = call i8* @malloc(i64 %d)", reg, n)
	return reg
}

func (b *funcBuilder) storeHeaderLength(header, length string) {
	b.emit("store i64 %s, i64* %s", length, header)
}

func (b *funcBuilder) storeHeaderData(header, data string) {
	field := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 8", field, header)
	b.emit("store i8* %s, i8** %s", data, field)
}

func (b *funcBuilder) loadHeaderLength(header string) string {
	reg := b.newReg()
	b.emit("%s = load i64, i64* %s", reg, header)
	return reg
}

func (b *funcBuilder) loadHeaderData(header string) string {
	field := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 8", field, header)
	reg := b.newReg()
	b.emit("%s = load i8*, i8** %s", reg, field)
	return reg
}

// buildListHeader mallocs a data region of max(len*8, 8) bytes, stores
// each element, then mallocs the 16-byte header (spec §4.5: "List / Set
// literals").
func (b *funcBuilder) buildListHeader(elems []ast.Expr) (string, error) {
	data := b.allocBytes(len(elems) * 8)
	for i, el := range elems {
		val, kind, err := b.lowerExpr(el)
		if err != nil {
			return "", err
		}
		if kind == KindF64 {
			widened := b.newReg()
			b.emit("%s = bitcast f64 %s to i64", widened, val)
			val = widened
		}
		slot := b.newReg()
		b.emit("%s = getelementptr i8, i8* %s, i64 %d", slot, data, i*8)
		b.emit("store i64 %s, i8* %s", val, slot)
	}
	header := b.allocBytes(headerSize)
	b.storeHeaderLength(header, fmt.Sprintf("%d", len(elems)))
	b.storeHeaderData(header, data)
	return header, nil
}

func (b *funcBuilder) lowerListLit(n *ast.ListLit) (string, NativeKind, error) {
	header, err := b.buildListHeader(n.Elems)
	if err != nil {
		return "", KindI64, err
	}
	return header, KindI64, nil
}

func (b *funcBuilder) lowerSetLit(n *ast.SetLit) (string, NativeKind, error) {
	header, err := b.buildListHeader(n.Elems)
	if err != nil {
		return "", KindI64, err
	}
	return header, KindI64, nil
}

// lowerDictLit mallocs a data region of max(len*16, 8) bytes storing
// alternating key/value 8-byte slots, then the 16-byte header whose
// stored length is the pair count (spec §4.5).
func (b *funcBuilder) lowerDictLit(n *ast.DictLit) (string, NativeKind, error) {
	data := b.allocBytes(len(n.Entries) * 16)
	for i, entry := range n.Entries {
		key, _, err := b.lowerExpr(entry.Key)
		if err != nil {
			return "", KindI64, err
		}
		val, _, err := b.lowerExpr(entry.Val)
		if err != nil {
			return "", KindI64, err
		}
		keySlot := b.newReg()
		b.emit("%s = getelementptr i8, i8* %s, i64 %d", keySlot, data, i*16)
		b.emit("store i64 %s, i8* %s", key, keySlot)
		valSlot := b.newReg()
		b.emit("%s = getelementptr i8, i8* %s, i64 %d", valSlot, data, i*16+8)
		b.emit("store i64 %s, i8* %s", val, valSlot)
	}
	header := b.allocBytes(headerSize)
	b.storeHeaderLength(header, fmt.Sprintf("%d", len(n.Entries)))
	b.storeHeaderData(header, data)
	return header, KindI64, nil
}

func (b *funcBuilder) lowerMember(n *ast.Member) (string, NativeKind, error) {
	if n.Name != "len" {
		return "", KindI64, gulerrors.Codegen(b.fn.Name, "member %q has no native lowering", n.Name)
	}
	recv, _, err := b.lowerExpr(n.X)
	if err != nil {
		return "", KindI64, err
	}
	return b.loadHeaderLength(recv), KindI64, nil
}

// lowerIndex implements spec §4.5's index-lowering: a linear key-compare
// scan for Dict targets, direct offset arithmetic otherwise.
func (b *funcBuilder) lowerIndex(n *ast.Index) (string, NativeKind, error) {
	recv, _, err := b.lowerExpr(n.X)
	if err != nil {
		return "", KindI64, err
	}
	key, _, err := b.lowerExpr(n.Key)
	if err != nil {
		return "", KindI64, err
	}

	if n.X.ExprType().Kind == gultype.Dict {
		keyIsString := n.X.ExprType().Key != nil && n.X.ExprType().Key.Kind == gultype.String
		found, _ := b.lowerDictScan(recv, key, keyIsString)
		return found, KindI64, nil
	}

	data := b.loadHeaderData(recv)
	offset := b.newReg()
	b.emit("%s = mul i64 %s, 8", offset, key)
	slot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", slot, data, offset)
	result := b.newReg()
	b.emit("%s = load i64, i8* %s", result, slot)
	return result, KindI64, nil
}

func (b *funcBuilder) lowerIndexAssign(n *ast.IndexAssign) error {
	recv, _, err := b.lowerExpr(n.Target)
	if err != nil {
		return err
	}
	key, _, err := b.lowerExpr(n.Key)
	if err != nil {
		return err
	}
	val, _, err := b.lowerExpr(n.Value)
	if err != nil {
		return err
	}

	if n.Target.ExprType().Kind == gultype.Dict {
		keyIsString := n.Target.ExprType().Key != nil && n.Target.ExprType().Key.Kind == gultype.String
		_, slot := b.lowerDictScan(recv, key, keyIsString)
		b.emit("store i64 %s, i8* %s", val, slot)
		return nil
	}

	data := b.loadHeaderData(recv)
	offset := b.newReg()
	b.emit("%s = mul i64 %s, 8", offset, key)
	slot := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", slot, data, offset)
	b.emit("store i64 %s, i8* %s", val, slot)
	return nil
}

// lowerDictScan emits the linear-scan loop spec §4.5 describes for
// Dict index and indexed assignment (contains/remove use scanSlot and
// removeSlot instead): walk the pair-sized slots comparing keys
// with strcmp (String keys) or icmp eq (otherwise), and on hit load or
// return the matching value slot; on miss yield 0 / a null slot.
// Returns (value, valueSlotPointer); callers use whichever they need.
func (b *funcBuilder) lowerDictScan(header, key string, keyIsString bool) (string, string) {
	data := b.loadHeaderData(header)
	length := b.loadHeaderLength(header)

	idxSlot := b.allocSlot(b.newLabel("scan_idx"), KindI64)
	b.store(idxSlot, "0")

	headerLbl := b.newLabel("scan.header")
	bodyLbl := b.newLabel("scan.body")
	hitLbl := b.newLabel("scan.hit")
	nextLbl := b.newLabel("scan.next")
	missLbl := b.newLabel("scan.miss")
	doneLbl := b.newLabel("scan.done")

	resultSlot := b.allocSlot(b.newLabel("scan_result"), KindI64)
	b.store(resultSlot, "0")
	slotPtrSlot := b.allocSlot(b.newLabel("scan_slotptr"), KindI64)
	b.store(slotPtrSlot, "0")

	b.cur.terminate("br label %" + headerLbl)
	b.startBlock(headerLbl)
	idx := b.load(idxSlot)
	cont := b.newReg()
	b.emit("%s = icmp slt i64 %s, %s", cont, idx, length)
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cont, bodyLbl, missLbl))

	b.startBlock(bodyLbl)
	pairOffset := b.newReg()
	b.emit("%s = mul i64 %s, 16", pairOffset, idx)
	keySlotPtr := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 %s", keySlotPtr, data, pairOffset)
	candidateKey := b.newReg()
	b.emit("%s = load i64, i8* %s", candidateKey, keySlotPtr)

	eq := b.newReg()
	if keyIsString {
		cmp := b.newReg()
		b.emit("%s = call i32 @strcmp(i8* %s, i8* %s)", cmp, candidateKey, key)
		b.emit("%s = icmp eq i32 %s, 0", eq, cmp)
	} else {
		b.emit("%s = icmp eq i64 %s, %s", eq, candidateKey, key)
	}
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", eq, hitLbl, nextLbl))

	b.startBlock(hitLbl)
	valSlotPtr := b.newReg()
	b.emit("%s = getelementptr i8, i8* %s, i64 8", valSlotPtr, keySlotPtr)
	hitVal := b.newReg()
	b.emit("%s = load i64, i8* %s", hitVal, valSlotPtr)
	b.store(resultSlot, hitVal)
	b.store(slotPtrSlot, valSlotPtr)
	b.cur.terminate("br label %" + doneLbl)

	b.startBlock(nextLbl)
	incremented := b.newReg()
	b.emit("%s = add i64 %s, 1", incremented, idx)
	b.store(idxSlot, incremented)
	b.cur.terminate("br label %" + headerLbl)

	b.startBlock(missLbl)
	b.cur.terminate("br label %" + doneLbl)

	b.startBlock(doneLbl)
	return b.load(resultSlot), b.load(slotPtrSlot)
}
