package volume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

// DescriptionMember holds the URN of a directory volume.
const DescriptionMember = "container.description"

// DirVolume stores each member as one file in a directory. Member names are
// path-escaped, so "information.turtle/00000000" is a sibling file of
// "information.turtle" rather than a child.
type DirVolume struct {
	root string
	urn  rdfvalue.URN
}

// OpenDir opens the volume rooted at root, creating it with a fresh URN
// when the directory holds no volume yet.
func OpenDir(root string) (*DirVolume, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating volume directory: %w", err)
	}

	v := &DirVolume{root: root}
	desc, err := ReadAll(v, DescriptionMember)
	switch {
	case err == nil:
		v.urn = rdfvalue.NewURN(string(desc))
		return v, nil
	case errors.Is(err, ErrNoMember):
		v.urn = NewURN()
		if err := WriteAll(v, DescriptionMember, []byte(v.urn.String()), Stored); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("reading volume description: %w", err)
	}
}

// Root is the volume directory.
func (v *DirVolume) Root() string {
	return v.root
}

func (v *DirVolume) URN() rdfvalue.URN {
	return v.urn
}

func (v *DirVolume) path(name string) string {
	return filepath.Join(v.root, url.PathEscape(name))
}

func (v *DirVolume) ContainsMember(name string) bool {
	info, err := os.Stat(v.path(name))
	return err == nil && info.Mode().IsRegular()
}

func (v *DirVolume) CreateMember(name string) (Segment, error) {
	if name == "" {
		return nil, errors.New("empty member name")
	}
	path := v.path(name)
	return newSegment(func(framed []byte) error {
		tmp, err := os.CreateTemp(v.root, ".member-*")
		if err != nil {
			return fmt.Errorf("writing member %s: %w", name, err)
		}
		if _, err := tmp.Write(framed); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return fmt.Errorf("writing member %s: %w", name, err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmp.Name())
			return fmt.Errorf("writing member %s: %w", name, err)
		}
		return os.Rename(tmp.Name(), path)
	}), nil
}

func (v *DirVolume) OpenMember(name string) (io.ReadCloser, error) {
	framed, err := os.ReadFile(v.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s in %s: %w", name, v.urn, ErrNoMember)
	}
	if err != nil {
		return nil, fmt.Errorf("opening member %s: %w", name, err)
	}

	data, err := decode(framed)
	if err != nil {
		return nil, fmt.Errorf("decoding member %s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Members lists member names, sorted.
func (v *DirVolume) Members() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("listing volume: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

var _ Container = (*DirVolume)(nil)
