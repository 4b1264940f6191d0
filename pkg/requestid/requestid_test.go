package requestid

import (
	"context"
	"testing"
)

func TestGen_Format(t *testing.T) {
	id := Gen()
	if len(id) != 28 {
		t.Fatalf("len got=%d want=28 id=%s", len(id), id)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			t.Fatalf("id should be numeric, got=%s", id)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	if got := FromContext(context.Background()); got != "" {
		t.Fatalf("got=%q want empty", got)
	}
	ctx := WithID(context.Background(), " abc ")
	if got := FromContext(ctx); got != "abc" {
		t.Fatalf("got=%q want=abc", got)
	}
}
