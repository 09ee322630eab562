package sonorous

import (
	"os"
	"path"
	"sort"

	"github.com/absfs/absfs"
)

// Walk lists the tree below root as entries in a stable order: lexical
// within a directory, each directory before its contents. Root itself is
// not listed. Anything that is neither a regular file nor a directory is
// skipped. On filesystems implementing absfs.SymLinker, symbolic links are
// skipped rather than followed.
func Walk(fsys absfs.FileSystem, root string) ([]Entry, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, NewIOError("stat", root, err)
	}
	if !info.IsDir() {
		return nil, &IOError{Operation: "walk", Path: root, Offset: -1, Message: "root is not a directory", Err: ErrFilesystemConflict}
	}

	var entries []Entry
	if err := walkDir(fsys, root, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func walkDir(fsys absfs.FileSystem, root, rel string, entries *[]Entry) error {
	dir := path.Join(root, rel)
	f, err := fsys.Open(dir)
	if err != nil {
		return NewIOError("open", dir, err)
	}
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return NewIOError("readdir", dir, err)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		childRel := path.Join(rel, name)
		info, err := lstat(fsys, path.Join(root, childRel))
		if err != nil {
			return NewIOError("stat", childRel, err)
		}
		switch {
		case info.IsDir():
			*entries = append(*entries, Entry{Path: childRel})
			if err := walkDir(fsys, root, childRel, entries); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			*entries = append(*entries, Entry{Path: childRel, IsLeaf: true})
		}
	}
	return nil
}

// lstat describes name without following a final symbolic link when fsys
// can tell links apart
func lstat(fsys absfs.FileSystem, name string) (os.FileInfo, error) {
	if sl, ok := fsys.(absfs.SymLinker); ok {
		return sl.Lstat(name)
	}
	return fsys.Stat(name)
}
