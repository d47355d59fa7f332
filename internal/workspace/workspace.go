// Package workspace enumerates the generated program variants and the
// compiled objects each of them contributes to an analysis run.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
)

// VariantPlaceholder is replaced with the variant name in Layout.ObjectDir.
const VariantPlaceholder = "{variant}"

var (
	ErrNoRoot         = errors.New("workspace root not set")
	ErrMissingVariant = errors.New("variant directory not found")
)

// Unit is one compiled object of a variant, identified by its path
// relative to the variant's object root.
type Unit struct {
	ID     string // slash separated, identical across variants
	Object string // absolute path of the object file
}

// Variant is one generated version of the program under test.
type Variant struct {
	Name      string
	Dir       string
	ObjectDir string
	Units     []Unit
}

// Unit returns the compilation unit with the given id.
func (v Variant) Unit(id string) (Unit, bool) {
	for _, u := range v.Units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// Layout describes where variants and their objects live on disk.
type Layout struct {
	Root         string
	Variants     []string
	ObjectDir    string // relative to Root, may contain VariantPlaceholder
	ObjectSuffix string
}

func (l Layout) objectDir(variant string) string {
	dir := l.ObjectDir
	if dir == "" {
		dir = VariantPlaceholder
	}
	return filepath.Join(l.Root, strings.ReplaceAll(dir, VariantPlaceholder, variant))
}

// Discover lists the variants below the layout root together with their
// compilation units. Without an explicit variant list every subdirectory
// that is not itself an object directory counts as a variant, in name order.
func Discover(ctx context.Context, layout Layout) ([]Variant, error) {
	if layout.Root == "" {
		return nil, ErrNoRoot
	}
	fs := afs.New()

	names := layout.Variants
	if len(names) == 0 {
		dirs, err := listDirs(ctx, fs, layout.Root)
		if err != nil {
			return nil, err
		}
		objectDirs := make(map[string]bool)
		for _, name := range dirs {
			rel, err := filepath.Rel(layout.Root, layout.objectDir(name))
			if err != nil {
				continue
			}
			if top := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]; top != name {
				objectDirs[top] = true
			}
		}
		for _, name := range dirs {
			if !objectDirs[name] {
				names = append(names, name)
			}
		}
		sort.Strings(names)
	}

	variants := make([]Variant, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(layout.Root, name)
		ok, err := fs.Exists(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("stat variant %s: %w", name, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingVariant, dir)
		}

		v := Variant{Name: name, Dir: dir, ObjectDir: layout.objectDir(name)}
		exists, err := fs.Exists(ctx, v.ObjectDir)
		if err != nil {
			return nil, fmt.Errorf("stat objects of %s: %w", name, err)
		}
		if exists {
			if v.Units, err = listUnits(ctx, fs, v.ObjectDir, layout.ObjectSuffix); err != nil {
				return nil, fmt.Errorf("list objects of %s: %w", name, err)
			}
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// listDirs returns the names of the immediate subdirectories of dir.
func listDirs(ctx context.Context, fs afs.Service, dir string) ([]string, error) {
	objects, err := fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for i, obj := range objects {
		// afs reports the listed directory itself first
		if i == 0 && obj.IsDir() && obj.Name() == filepath.Base(dir) {
			continue
		}
		if obj.IsDir() {
			names = append(names, obj.Name())
		}
	}
	return names, nil
}

func listUnits(ctx context.Context, fs afs.Service, root, suffix string) ([]Unit, error) {
	var units []Unit
	pending := []string{""}
	for len(pending) > 0 {
		rel := pending[0]
		pending = pending[1:]

		dir := filepath.Join(root, filepath.FromSlash(rel))
		objects, err := fs.List(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for i, obj := range objects {
			if i == 0 && obj.IsDir() && obj.Name() == filepath.Base(dir) {
				continue
			}
			child := path.Join(rel, obj.Name())
			if obj.IsDir() {
				pending = append(pending, child)
				continue
			}
			if suffix != "" && !strings.HasSuffix(obj.Name(), suffix) {
				continue
			}
			units = append(units, Unit{ID: child, Object: filepath.Join(root, filepath.FromSlash(child))})
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}
