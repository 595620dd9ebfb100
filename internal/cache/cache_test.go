package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key(NamespacePage, "https://a.com")
	b := Key(NamespacePage, "https://b.com")
	s := Key(NamespaceSearch, "https://a.com")

	if a == b || a == s {
		t.Error("keys must differ across values and namespaces")
	}
	if !strings.HasPrefix(a, "factlens:v1:page:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
	if Key(NamespaceSearch, "q", "3") == Key(NamespaceSearch, "q3") {
		t.Error("parts must not collide when concatenated")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}

	_ = c.Set("k", []byte("v"), 0)
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Errorf("Get = %q, %v", v, ok)
	}

	_ = c.Set("short", []byte("x"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected expired entry to miss")
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected deleted entry to miss")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d", c.Len())
	}
}

func TestJSONHelpers(t *testing.T) {
	type result struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}

	c := NewMemoryCache(time.Minute, time.Minute)
	SetJSON(c, "r", []result{{URL: "https://a.com", Title: "A"}}, 0)

	got, ok := GetJSON[[]result](c, "r")
	if !ok || len(got) != 1 || got[0].Title != "A" {
		t.Errorf("GetJSON = %+v, %v", got, ok)
	}

	_ = c.Set("bad", []byte("{not json"), 0)
	if _, ok := GetJSON[[]result](c, "bad"); ok {
		t.Error("expected undecodable entry to miss")
	}

	if _, ok := GetJSON[int](nil, "x"); ok {
		t.Error("nil cache must miss")
	}
	SetJSON(nil, "x", 1, 0)
}
