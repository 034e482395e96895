package log

import "testing"

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"Debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warn":    WarnLevel,
		"WARNING": WarnLevel,
		"Error":   ErrorLevel,
		"FATAL":   FatalLevel,
		" info ":  InfoLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("unknown level must error")
	}
}
