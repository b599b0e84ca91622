package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestBinaryVersionDefault(t *testing.T) {
	if BinaryVersion != "dev" {
		t.Errorf("Expected BinaryVersion to be 'dev', got '%s'", BinaryVersion)
	}
}

func TestModuleVersionIntegration(t *testing.T) {
	expected := ""
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		expected = info.Main.Version
	}
	if actual := ModuleVersion(); expected != actual {
		t.Errorf("ModuleVersion() = '%s', expected '%s'", actual, expected)
	}
}

func TestVersionPrefersStamp(t *testing.T) {
	old := BinaryVersion
	t.Cleanup(func() { BinaryVersion = old })

	BinaryVersion = "v1.2.3"
	if got := Version(); got != "v1.2.3" {
		t.Errorf("Version() = %q, want v1.2.3", got)
	}
	if got := UserAgent(); got != "aerorepo/v1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
}

func TestVersionFallback(t *testing.T) {
	got := Version()
	if got == "" {
		t.Fatal("Version() should never be empty")
	}
	if !strings.HasPrefix(UserAgent(), "aerorepo/") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
