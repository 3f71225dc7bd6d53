package gateway

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"strings"
)

// Action はリクエストが要求する処理。
type Action string

const (
	ActionSignup  Action = "signup"
	ActionLogin   Action = "login"
	ActionMe      Action = "me"
	ActionConvert Action = "convert"
	ActionHistory Action = "history"
)

// call は1件のリクエストの処理に必要な値。
type call struct {
	req *Request
	// ownerID は認証済みの場合のみ設定される。
	ownerID int64
	db      *sql.DB
}

// route はアクションごとの受付条件と処理。
type route struct {
	method  string
	auth    bool
	handler func(*Gateway, context.Context, *call) *Response
}

// routes はアクションからの静的なルート表。
var routes = map[Action]route{
	ActionSignup:  {method: http.MethodPost, handler: (*Gateway).handleSignup},
	ActionLogin:   {method: http.MethodPost, handler: (*Gateway).handleLogin},
	ActionMe:      {method: http.MethodGet, auth: true, handler: (*Gateway).handleMe},
	ActionConvert: {method: http.MethodPost, auth: true, handler: (*Gateway).handleConvert},
	ActionHistory: {method: http.MethodGet, auth: true, handler: (*Gateway).handleHistory},
}

// segmentActions はパスの末尾セグメントからアクションへの対応。
var segmentActions = map[string]Action{
	"signup":        ActionSignup,
	"login":         ActionLogin,
	"me":            ActionMe,
	"text-to-voice": ActionConvert,
	"history":       ActionHistory,
}

// queryActions は ?action= パラメータからアクションへの対応。
var queryActions = map[string]Action{
	"signup":        ActionSignup,
	"login":         ActionLogin,
	"me":            ActionMe,
	"convert":       ActionConvert,
	"text-to-voice": ActionConvert,
	"history":       ActionHistory,
}

// ResolveAction はパスとクエリからアクションを決定する。
// ?action= が指定されていればパスより優先する。
func ResolveAction(path string, query url.Values) (Action, bool) {
	if name := query.Get("action"); name != "" {
		a, ok := queryActions[name]
		return a, ok
	}
	a, ok := segmentActions[lastSegment(path)]
	return a, ok
}

// resolve はメソッドも含めてルートを決定する。メソッドが一致しない場合は見つからない扱い。
func resolve(method, path string, query url.Values) (route, bool) {
	a, ok := ResolveAction(path, query)
	if !ok {
		return route{}, false
	}
	rt, ok := routes[a]
	if !ok || !strings.EqualFold(rt.method, method) {
		return route{}, false
	}
	return rt, true
}

// lastSegment はパスの末尾の空でないセグメントを返す。
func lastSegment(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
