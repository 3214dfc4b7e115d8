package vision

import "testing"

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"unfenced", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single line fence", "```{\"a\":1}```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Fatalf("%s: stripCodeFence = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestParseExtraction(t *testing.T) {
	raw := "```json\n{\"sender\":\"Ana P\",\"receiver\":\"Congreso\",\"amount\":\"350.00\",\"dateTime\":\"2026-08-30 10:00\"}\n```"
	out, err := parseExtraction(raw)
	if err != nil {
		t.Fatalf("parseExtraction error: %v", err)
	}
	if out.Sender != "Ana P" || out.Receiver != "Congreso" || out.Amount != "350.00" || out.DateTime != "2026-08-30 10:00" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestParseExtractionGarbage(t *testing.T) {
	if _, err := parseExtraction("the model refused"); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestSentinelResult(t *testing.T) {
	out := SentinelResult()
	for _, f := range []string{out.Sender, out.Receiver, out.Amount, out.DateTime} {
		if f != Sentinel {
			t.Fatalf("sentinel field = %q, want %q", f, Sentinel)
		}
	}
}

func TestImageFormat(t *testing.T) {
	if got := imageFormat("image/png"); got != "png" {
		t.Fatalf("imageFormat = %q", got)
	}
	if got := imageFormat("application/octet-stream"); got != "jpeg" {
		t.Fatalf("fallback format = %q", got)
	}
}
