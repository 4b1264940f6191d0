package jsonutil

import "testing"

func TestGetIntByPath_SupportsWildcardAndIndex(t *testing.T) {
	root := map[string]any{
		"usage": map[string]any{
			"items": []any{
				map[string]any{"tokens": 2},
				map[string]any{"tokens": 3},
			},
			"first": []any{
				map[string]any{"v": 7},
			},
		},
	}

	if got := GetIntByPath(root, "$.usage.items[*].tokens"); got != 5 {
		t.Fatalf("wildcard sum got %d, want 5", got)
	}
	if got := GetIntByPath(root, "$.usage.first[0].v"); got != 7 {
		t.Fatalf("index access got %d, want 7", got)
	}
}

func TestCoerceInt_StringAndArray(t *testing.T) {
	if got := CoerceInt("12"); got != 12 {
		t.Fatalf("string cast got %d, want 12", got)
	}
	if got := CoerceInt([]any{1, float64(2), "3"}); got != 6 {
		t.Fatalf("array sum got %d, want 6", got)
	}
}

func TestGetStringByPath_ChatContent(t *testing.T) {
	root := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": "hi there"}},
		},
	}
	if got := GetStringByPath(root, "$.choices[0].message.content"); got != "hi there" {
		t.Fatalf("got=%q want=%q", got, "hi there")
	}
	if got := GetStringByPath(root, "$.choices[1].message.content"); got != "" {
		t.Fatalf("out of range index should be empty, got=%q", got)
	}
	if got := GetStringByPath(root, "choices"); got != "" {
		t.Fatalf("path without $. prefix should be empty, got=%q", got)
	}
}

func TestGetStringsByPath_ImageURLs(t *testing.T) {
	root := map[string]any{
		"data": []any{
			map[string]any{"url": "https://a"},
			map[string]any{"b64_json": "xx"},
			map[string]any{"url": "https://b"},
		},
	}
	got := GetStringsByPath(root, "$.data[*].url")
	if len(got) != 2 || got[0] != "https://a" || got[1] != "https://b" {
		t.Fatalf("got=%v", got)
	}
}

func TestGetFloatMatrixByPath_Embeddings(t *testing.T) {
	root := map[string]any{
		"data": []any{
			map[string]any{"embedding": []any{0.1, float64(2), -0.5}},
			map[string]any{"embedding": []any{1.5}},
		},
	}
	got, ok := GetFloatMatrixByPath(root, "$.data[*].embedding")
	if !ok {
		t.Fatalf("expected ok")
	}
	if len(got) != 2 || len(got[0]) != 3 || got[0][2] != -0.5 || got[1][0] != 1.5 {
		t.Fatalf("got=%v", got)
	}

	bad := map[string]any{"data": []any{map[string]any{"embedding": []any{"x"}}}}
	if _, ok := GetFloatMatrixByPath(bad, "$.data[*].embedding"); ok {
		t.Fatalf("non-numeric vector should fail")
	}
}
