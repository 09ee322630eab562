package sonorous

import (
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/absfs/absfs"
)

// OSFS is an absfs.FileSystem backed by an operating system directory.
// Slash separated names resolve below the root directory and cannot escape
// it; "/" names the root itself.
type OSFS struct {
	root string
	cwd  string
}

var (
	_ absfs.FileSystem = (*OSFS)(nil)
	_ absfs.SymLinker  = (*OSFS)(nil)
)

// NewOSFS returns a filesystem rooted at dir
func NewOSFS(dir string) (*OSFS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &OSFS{root: abs, cwd: "/"}, nil
}

// Root returns the operating system directory backing the filesystem
func (fs *OSFS) Root() string {
	return fs.root
}

func (fs *OSFS) resolve(name string) string {
	if !path.IsAbs(name) {
		name = path.Join(fs.cwd, name)
	}
	return filepath.Join(fs.root, filepath.FromSlash(path.Clean("/"+name)))
}

func (fs *OSFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	return os.OpenFile(fs.resolve(name), flag, perm)
}

func (fs *OSFS) Open(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

func (fs *OSFS) Create(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (fs *OSFS) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(fs.resolve(name), perm)
}

func (fs *OSFS) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(fs.resolve(name), perm)
}

func (fs *OSFS) Remove(name string) error {
	return os.Remove(fs.resolve(name))
}

func (fs *OSFS) RemoveAll(name string) error {
	return os.RemoveAll(fs.resolve(name))
}

func (fs *OSFS) Rename(oldpath, newpath string) error {
	return os.Rename(fs.resolve(oldpath), fs.resolve(newpath))
}

func (fs *OSFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(fs.resolve(name))
}

func (fs *OSFS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(fs.resolve(name), mode)
}

func (fs *OSFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(fs.resolve(name), atime, mtime)
}

func (fs *OSFS) Chown(name string, uid, gid int) error {
	return os.Chown(fs.resolve(name), uid, gid)
}

func (fs *OSFS) Truncate(name string, size int64) error {
	return os.Truncate(fs.resolve(name), size)
}

func (fs *OSFS) Lstat(name string) (os.FileInfo, error) {
	return os.Lstat(fs.resolve(name))
}

func (fs *OSFS) Lchown(name string, uid, gid int) error {
	return os.Lchown(fs.resolve(name), uid, gid)
}

func (fs *OSFS) Readlink(name string) (string, error) {
	return os.Readlink(fs.resolve(name))
}

// Symlink creates newname pointing at oldname. A relative oldname is stored
// as given; an absolute one is resolved below the root.
func (fs *OSFS) Symlink(oldname, newname string) error {
	if path.IsAbs(oldname) {
		oldname = fs.resolve(oldname)
	} else {
		oldname = filepath.FromSlash(oldname)
	}
	return os.Symlink(oldname, fs.resolve(newname))
}

// Separator is always '/': names are slash separated regardless of the host
func (fs *OSFS) Separator() uint8 {
	return '/'
}

func (fs *OSFS) ListSeparator() uint8 {
	return os.PathListSeparator
}

func (fs *OSFS) Chdir(dir string) error {
	info, err := fs.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: dir, Err: ErrFilesystemConflict}
	}
	if !path.IsAbs(dir) {
		dir = path.Join(fs.cwd, dir)
	}
	fs.cwd = path.Clean(dir)
	return nil
}

func (fs *OSFS) Getwd() (string, error) {
	return fs.cwd, nil
}

func (fs *OSFS) TempDir() string {
	return os.TempDir()
}
