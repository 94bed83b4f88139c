package main

import (
	"encoding/json"
	"expvar"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/expvarhandler"
)

var (
	// Counters for evaluation requests and their outcomes.
	evalRequests = expvar.NewInt("evalRequests")
	evalGood     = expvar.NewInt("evalGood")
	evalBad      = expvar.NewInt("evalBad")

	// Parse cache lookups.
	cacheHits   = expvar.NewInt("parseCacheHits")
	cacheMisses = expvar.NewInt("parseCacheMisses")
)

type evalRequest struct {
	Message string `json:"message"`
}

type evalResponse struct {
	Type    string `json:"type"`
	Val     string `json:"val,omitempty"`
	Message string `json:"message,omitempty"`
}

func newHTTPServer(ev *evaluator) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:      ev.handleHTTP,
		Name:         "counter",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// handleHTTP serves evaluation requests on /eval and server stats on /stats.
func (ev *evaluator) handleHTTP(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/eval":
		ev.handleEval(ctx)
	case "/stats":
		expvarhandler.ExpvarHandler(ctx)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (ev *evaluator) handleEval(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}
	evalRequests.Add(1)
	var req evalRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		evalBad.Add(1)
		writeJSON(ctx, fasthttp.StatusBadRequest, evalResponse{Type: "bad", Message: err.Error()})
		return
	}
	val, err := ev.eval(req.Message)
	hits, misses := ev.cache.Stats()
	cacheHits.Set(hits)
	cacheMisses.Set(misses)
	if err != nil {
		evalBad.Add(1)
		writeJSON(ctx, fasthttp.StatusBadRequest, evalResponse{Type: "bad", Message: err.Error()})
		return
	}
	evalGood.Add(1)
	writeJSON(ctx, fasthttp.StatusOK, evalResponse{Type: "good", Val: val})
}

func writeJSON(ctx *fasthttp.RequestCtx, code int, v interface{}) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(code)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
	}
}
