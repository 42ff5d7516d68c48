package mediatypes

import "testing"

func TestIsImageName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.jpg", true},
		{"PHOTO.JPEG", true},
		{"a/b/c.PNG", true},
		{`dir\scan.tiff`, true},
		{"x.webp", true},
		{"x.gif", true},
		{"x.bmp", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noext", false},
		{"jpg", false},
		{"dir.jpg/readme", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsImageName(tt.name); got != tt.want {
				t.Errorf("IsImageName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsZipName(t *testing.T) {
	if !IsZipName("/a/Comics.ZIP") {
		t.Error("IsZipName should match upper-case extension")
	}
	if IsZipName("/a/zip") || IsZipName("a.zip.txt") {
		t.Error("IsZipName matched a non-zip name")
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".JPG", "image/jpeg"},
		{".webp", "image/webp"},
		{".zip", "application/zip"},
		{".exe", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestBaseWithoutExt(t *testing.T) {
	tests := map[string]string{
		"/a/b/Vol 1.zip":  "Vol 1",
		`C:\x\Album.zip`:  "Album",
		"/a/b/folder":     "folder",
		"/a/b/.hidden":    "",
		"/a/b/v1.2.3.zip": "v1.2.3",
	}
	for in, want := range tests {
		if got := BaseWithoutExt(in); got != want {
			t.Errorf("BaseWithoutExt(%q) = %q, want %q", in, got, want)
		}
	}
}
