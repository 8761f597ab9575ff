/*
Gul-cached is a small HTTP daemon for inspecting a gul build cache: hit
and miss counters, and lookup of a single cached entry by its key.

Usage:

	gul-cached [flags]

The flags are:

	-l, --listen ADDRESS
		Listen on the given address. Defaults to "localhost:8090".

	-c, --cache PATH
		Path to the sqlite build-cache database to serve. Defaults to
		".gulcache.db".
*/
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/dekarrin/gul/internal/buildcache"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
)

var (
	flagListen = pflag.StringP("listen", "l", "localhost:8090", "Listen on the given address.")
	flagCache  = pflag.StringP("cache", "c", ".gulcache.db", "Path to the sqlite build-cache database to serve.")
)

func main() {
	pflag.Parse()

	store, err := buildcache.Open(*flagCache)
	if err != nil {
		log.Fatalf("FATAL could not open build cache: %s", err.Error())
	}
	defer store.Close()

	r := chi.NewRouter()
	r.Get("/stats", endpoint(store, statsEndpoint))
	r.Get("/entries/{key}", endpoint(store, lookupEndpoint))

	log.Printf("INFO  gul-cached serving %s on %s", *flagCache, *flagListen)
	log.Fatal(http.ListenAndServe(*flagListen, r))
}

// cacheEndpoint handles one request against an open Store and returns a
// JSON-able value, or an error to be reported as HTTP-500.
type cacheEndpoint func(store *buildcache.Store, r *http.Request) (interface{}, error)

// endpoint wraps a cacheEndpoint the way tunaq's server wraps its
// EndpointFuncs: one panic-to-500 recovery layer, JSON marshaling of
// the returned value, and uniform request logging.
func endpoint(store *buildcache.Store, ep cacheEndpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer panicTo500(w, req)

		body, err := ep(store, req)
		if err != nil {
			logRequest("ERROR", req, http.StatusInternalServerError, err.Error())
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logRequest("ERROR", req, http.StatusInternalServerError, "could not marshal JSON response: "+err.Error())
			return
		}
		logRequest("INFO", req, http.StatusOK, "")
	}
}

func statsEndpoint(store *buildcache.Store, r *http.Request) (interface{}, error) {
	return store.Stats(r.Context())
}

func lookupEndpoint(store *buildcache.Store, r *http.Request) (interface{}, error) {
	key := chi.URLParam(r, "key")
	entry, err := store.Lookup(r.Context(), key)
	if err != nil {
		return map[string]string{"error": err.Error()}, nil
	}
	return map[string]interface{}{
		"object":  entry.Object,
		"run_id":  entry.RunID.String(),
		"created": entry.Created,
	}, nil
}

func panicTo500(w http.ResponseWriter, req *http.Request) {
	if panicErr := recover(); panicErr != nil {
		msg := fmt.Sprintf("panic: %v\n%s", panicErr, string(debug.Stack()))
		logRequest("ERROR", req, http.StatusInternalServerError, msg)
		http.Error(w, "An internal server error occurred", http.StatusInternalServerError)
	}
}

func logRequest(level string, req *http.Request, status int, msg string) {
	for len(level) < 5 {
		level += " "
	}
	if msg == "" {
		log.Printf("%s %s %s: HTTP-%d", level, req.Method, req.URL.Path, status)
		return
	}
	log.Printf("%s %s %s: HTTP-%d: %s", level, req.Method, req.URL.Path, status, msg)
}
