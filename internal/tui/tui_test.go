package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/trafficdump"
)

func typeAndSend(t *testing.T, m chatModel, text string) (chatModel, tea.Msg) {
	t.Helper()
	m.input.SetValue(text)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	if !m.waiting {
		t.Fatalf("model should be waiting after send")
	}
	return m, m.sendCmd()()
}

func TestChatModel_SendsHistory(t *testing.T) {
	var seen [][]apitypes.ChatMessage
	send := func(_ context.Context, msgs []apitypes.ChatMessage) (string, error) {
		seen = append(seen, msgs)
		return "answer " + msgs[len(msgs)-1].Text(), nil
	}
	m := newChatModel(send, "gpt-4o-mini", 0)

	m, reply := typeAndSend(t, m, "one")
	next, _ := m.Update(reply)
	m = next.(chatModel)
	m, reply = typeAndSend(t, m, "two")
	next, _ = m.Update(reply)
	m = next.(chatModel)

	if len(m.history) != 4 {
		t.Fatalf("history len got=%d want=4", len(m.history))
	}
	if got := m.history[3].Text(); got != "answer two" {
		t.Fatalf("last reply got=%q", got)
	}
	if len(seen[1]) != 3 {
		t.Fatalf("second send should carry the conversation, got %d messages", len(seen[1]))
	}
	if !strings.Contains(m.transcript(), "answer one") {
		t.Fatalf("transcript missing reply: %q", m.transcript())
	}
}

func TestChatModel_ErrorRestoresInput(t *testing.T) {
	send := func(context.Context, []apitypes.ChatMessage) (string, error) {
		return "", errors.New("status=429")
	}
	m := newChatModel(send, "gpt-4o-mini", 0)
	m, reply := typeAndSend(t, m, "hello")
	next, _ := m.Update(reply)
	m = next.(chatModel)

	if m.err == nil || len(m.history) != 0 {
		t.Fatalf("got err=%v history=%d", m.err, len(m.history))
	}
	if m.input.Value() != "hello" {
		t.Fatalf("input should be restored, got=%q", m.input.Value())
	}
	if !strings.Contains(m.View(), "status=429") {
		t.Fatalf("view should show the error")
	}
}

func TestDumpViewer_LoadsAndOpens(t *testing.T) {
	dir := t.TempDir()
	req := httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/embeddings", nil)
	rec, err := trafficdump.Start(trafficdump.Config{Dir: dir, FilePath: "{{.request_id}}.log", MaxBytes: 1024}, "rid-9", "embedding", req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.AppendResponse("HTTP/1.1 200 OK", http.Header{}, []byte(`{"data":[]}`), 11, false)
	rec.Close()

	m := newDumpViewerModel(dir)
	next, _ := m.Update(m.loadDumpsCmd()())
	m = next.(dumpViewerModel)
	items := m.list.Items()
	if len(items) != 1 {
		t.Fatalf("items got=%d", len(items))
	}
	it := items[0].(dumpItem)
	if !strings.Contains(it.Title(), "200") || !strings.Contains(it.Title(), "embedding") {
		t.Fatalf("title got=%q", it.Title())
	}

	next, _ = m.Update(readDumpFileCmd(it.sum.Path)())
	m = next.(dumpViewerModel)
	if m.state != dumpViewerStateDetail || m.selectedPath != it.sum.Path {
		t.Fatalf("state=%v path=%q", m.state, m.selectedPath)
	}
}
