package audio

import (
	"bytes"
	"strings"
	"testing"
)

func TestFileContentType(t *testing.T) {
	cases := map[string]string{
		"a.MP3":  "audio/mpeg",
		"b.wav":  "audio/wav",
		"c.m4a":  "audio/mp4",
		"d.xyz":  "application/octet-stream",
		"noext":  "application/octet-stream",
		"e.webm": "audio/webm",
	}
	for name, want := range cases {
		if got := (File{Name: name}).ContentType(); got != want {
			t.Fatalf("name=%s got=%s want=%s", name, got, want)
		}
	}
}

func TestFileValidate(t *testing.T) {
	if err := (File{Name: "a.wav", Data: []byte{1}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (File{Name: "a.txt", Data: []byte{1}}).Validate(); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if err := (File{Name: "a.wav"}).Validate(); err == nil {
		t.Fatalf("expected empty file error")
	}
}

func TestRead_RejectsOversize(t *testing.T) {
	big := bytes.NewReader(make([]byte, MaxUploadBytes+1))
	_, err := Read("big.wav", big)
	if err == nil || !strings.Contains(err.Error(), "limit") {
		t.Fatalf("got err=%v", err)
	}
	f, err := Read("/tmp/clip.ogg", strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Name != "clip.ogg" {
		t.Fatalf("name got=%s want=clip.ogg", f.Name)
	}
}

func TestMP3Duration_Garbage(t *testing.T) {
	if _, err := MP3Duration([]byte("not an mp3")); err == nil {
		t.Fatalf("expected decode error")
	}
	if d := (File{Name: "x.mp3", Data: []byte("junk")}).Duration(); d != 0 {
		t.Fatalf("got=%s want=0", d)
	}
}

func TestSpeechContentType(t *testing.T) {
	for format, want := range map[string]string{"mp3": "audio/mpeg", "OPUS": "audio/ogg", "pcm": "audio/L16", "xyz": "application/octet-stream"} {
		if got := SpeechContentType(format); got != want {
			t.Fatalf("format=%s got=%q want=%q", format, got, want)
		}
	}
}
