package git

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
)

func TestParseFileMode(t *testing.T) {
	tests := []struct {
		in      string
		want    filemode.FileMode
		wantErr bool
	}{
		{in: "100644", want: filemode.Regular},
		{in: "100755", want: filemode.Executable},
		{in: "120000", want: filemode.Symlink},
		{in: "160000", want: filemode.Submodule},
		{in: "", want: filemode.Empty},
		{in: "10064x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFileMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFileMode(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFileMode(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFileMode(%q) = %o, want %o", tt.in, got, tt.want)
		}
	}
}

func TestIsTypeChange(t *testing.T) {
	tests := []struct {
		name     string
		old, new filemode.FileMode
		want     bool
	}{
		{name: "Chmod", old: filemode.Regular, new: filemode.Executable, want: false},
		{name: "FileToSymlink", old: filemode.Regular, new: filemode.Symlink, want: true},
		{name: "SymlinkToSubmodule", old: filemode.Symlink, new: filemode.Submodule, want: true},
		{name: "Added", old: filemode.Empty, new: filemode.Regular, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTypeChange(tt.old, tt.new); got != tt.want {
				t.Errorf("IsTypeChange(%o, %o) = %v, want %v", tt.old, tt.new, got, tt.want)
			}
		})
	}
}
