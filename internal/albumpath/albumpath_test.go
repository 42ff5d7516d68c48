package albumpath

import (
	"path/filepath"
	"reflect"
	"testing"
)

func withCaseSensitivity(t *testing.T, insensitive bool) {
	t.Helper()
	prev := CaseInsensitive
	CaseInsensitive = insensitive
	t.Cleanup(func() { CaseInsensitive = prev })
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{".", ""},
		{"/", "/"},
		{"/a/b/", "/a/b"},
		{"/a//b/./c/../d", "/a/b/d"},
		{`C:\Photos\2024\`, "C:/Photos/2024"},
		{"C:", "C:/"},
		{`C:\`, "C:/"},
		{"C:/..", "C:/"},
		{`\\nas\share\album`, "//nas/share/album"},
		{"//nas", "//nas"},
		{"//nas/", "//nas"},
		{"//nas/share/../other/", "//nas/other"},
		{"///a/b", "/a/b"},
		{"rel/dir/../x", "rel/x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", ".", "..", "/", "//", "///", "a", "a/", "./a/./b/..",
		`C:\x\..\y\`, "c:", "Z:relative", `\\srv`, `\\srv\share\`, "//srv/../x",
		"/a/b/../../..", "../../a", "/a\\b/c", "//h/a//b///c",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCanonicalIsAbsolute(t *testing.T) {
	dir := t.TempDir()
	got := Canonical(filepath.Join(dir, "x", "..", "album"))
	want := Normalize(filepath.Join(dir, "album"))
	if got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
	if Canonical("") != "" {
		t.Error("Canonical(\"\") should be empty")
	}
}

func TestKey(t *testing.T) {
	withCaseSensitivity(t, true)
	if Key(`C:\Photos\Trip`) != "c:/photos/trip" {
		t.Errorf("Key folded = %q", Key(`C:\Photos\Trip`))
	}

	CaseInsensitive = false
	if Key("/Photos/Trip/") != "/Photos/Trip" {
		t.Errorf("Key preserved = %q", Key("/Photos/Trip/"))
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/", []string{"/"}},
		{"/a/b", []string{"/", "a", "b"}},
		{"C:/a/b", []string{"C:/", "a", "b"}},
		{"C:/", []string{"C:/"}},
		{"//host/share/a", []string{"//host", "share", "a"}},
		{"//host", []string{"//host"}},
		{"a/b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Segments(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segments(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParentOf(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"/a/b/c", "/a/b", true},
		{"/a/b", "/a", true},
		{"/a", "", false},
		{"/", "", false},
		{"C:/a/b", "C:/a", true},
		{"C:/a", "", false},
		{"//host/share/a", "//host/share", true},
		{"//host/share", "//host", true},
		{"//host", "", false},
		{"a", "", false},
		{"a/b", "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParentOf(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParentOf(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveParent(t *testing.T) {
	withCaseSensitivity(t, false)

	t.Run("nearest registered ancestor", func(t *testing.T) {
		index := NewKeys("/a", "/a/b", "/a/b/c")
		got, ok := ResolveParent("/a/b/c", index)
		if !ok || got != "/a/b" {
			t.Errorf("ResolveParent = (%q, %v), want (/a/b, true)", got, ok)
		}
	})

	t.Run("skips unregistered intermediate directories", func(t *testing.T) {
		index := NewKeys("/a", "/a/b/c")
		got, ok := ResolveParent("/a/b/c", index)
		if !ok || got != "/a" {
			t.Errorf("ResolveParent = (%q, %v), want (/a, true)", got, ok)
		}
	})

	t.Run("root has no parent", func(t *testing.T) {
		index := NewKeys("/a", "/x/y")
		if got, ok := ResolveParent("/x/y", index); ok {
			t.Errorf("ResolveParent = %q, want none", got)
		}
	})

	t.Run("unc host prefix", func(t *testing.T) {
		index := NewKeys("//nas/share", "//nas/share/trip/day1")
		got, ok := ResolveParent("//nas/share/trip/day1", index)
		if !ok || got != "//nas/share" {
			t.Errorf("ResolveParent = (%q, %v), want (//nas/share, true)", got, ok)
		}
	})

	t.Run("case folded lookup", func(t *testing.T) {
		CaseInsensitive = true
		defer func() { CaseInsensitive = false }()
		index := NewKeys("C:/Photos")
		got, ok := ResolveParent(`c:\photos\Trip`, index)
		if !ok || Key(got) != "c:/photos" {
			t.Errorf("ResolveParent = (%q, %v)", got, ok)
		}
	})
}

func TestAncestors(t *testing.T) {
	withCaseSensitivity(t, false)
	index := NewKeys("/a", "/a/b/c", "/a/b/c/d")

	got := Ancestors("/a/b/c/d/e", index)
	want := []string{"/a", "/a/b/c", "/a/b/c/d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ancestors = %v, want %v", got, want)
	}

	if got := Ancestors("/a", index); len(got) != 0 {
		t.Errorf("Ancestors(/a) = %v, want empty", got)
	}
}

func TestIsDescendant(t *testing.T) {
	withCaseSensitivity(t, false)
	tests := []struct {
		child, parent string
		want          bool
	}{
		{"/a/b", "/a", true},
		{"/a/b/c", "/a", true},
		{"/a", "/a", false},
		{"/ab", "/a", false},
		{"/a", "/a/b", false},
		{"C:/x/y", "C:/", true},
		{"//h/s/x", "//h/s", true},
	}
	for _, tt := range tests {
		if got := IsDescendant(tt.child, tt.parent); got != tt.want {
			t.Errorf("IsDescendant(%q, %q) = %v, want %v", tt.child, tt.parent, got, tt.want)
		}
	}
}
