package storage

import (
	"testing"

	"github.com/starford/doclib/internal/checksum"
)

func TestS3Key(t *testing.T) {
	b := &S3{prefix: "docs/", exts: newExtFilter(DefaultExtensions)}

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a.pdf", "docs/a.pdf", false},
		{"/dir//b.md", "docs/dir/b.md", false},
		{"dir/./c.txt", "docs/dir/c.txt", false},
		{"../escape.md", "", true},
		{"dir/../../x.md", "", true},
		{"", "", true},
		{"/", "", true},
	}
	for _, tc := range cases {
		got, err := b.key(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("key(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("key(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestS3Allowed(t *testing.T) {
	b := &S3{exts: newExtFilter([]string{"pdf", ".DOCX"})}
	if !b.Allowed("x/y.pdf") || !b.Allowed("z.docx") {
		t.Error("expected pdf and docx to be allowed")
	}
	if b.Allowed("a.md") || b.Allowed(".secret.pdf") {
		t.Error("unexpected allowed path")
	}
}

func TestDigestMatchesListing(t *testing.T) {
	if (&S3{}).Digest() != checksum.MD5 {
		t.Error("S3 should report ETag-compatible MD5")
	}
	s := tempRoot(t)
	if s.Digest() != checksum.SHA256 {
		t.Error("FS should report SHA-256")
	}
	_ = s.Write(ctx, "a.md", []byte("hello"))
	items, err := s.List(ctx, "")
	if err != nil || len(items) != 1 {
		t.Fatalf("List: %v %v", items, err)
	}
	if items[0].Checksum != s.Digest().Sum([]byte("hello")) {
		t.Errorf("listed checksum %s does not match Digest", items[0].Checksum)
	}
}
