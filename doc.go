// Package sonorous builds and reads password-sealed archives of directory
// trees.
//
// # Overview
//
// An archive is a single write-once file holding every file and directory
// below a root. File contents are split into chunks of at most ChunkSize
// bytes and each chunk is sealed independently with ChaCha20-Poly1305 under
// a key derived from a password with Argon2id. An encrypted table of
// contents at the end of the file lists every entry and the offset of its
// body, so single entries can be extracted without decrypting the rest.
//
// # Basic Usage
//
//	src, _ := sonorous.NewOSFS("./photos")
//	entries, err := sonorous.Walk(src, "/")
//	if err != nil {
//	    panic(err)
//	}
//
//	out, _ := sonorous.NewOSFS(".")
//	_, err = sonorous.Create(out, "/photos.srs", src, "/", entries, []byte("password"), nil)
//
//	a, err := sonorous.Open(out, "/photos.srs", []byte("password"))
//	if err != nil {
//	    panic(err) // ErrAuthFailed for a wrong password
//	}
//	defer a.Close()
//
//	dst, _ := sonorous.NewOSFS("./restored")
//	_, err = a.ExtractTo(dst, "/", nil)
//
// Archive.Verify authenticates every stored chunk without writing anything,
// and Rekey copies an archive under a new password.
//
// # File Format
//
// Archives have no magic header:
//   - Entry bodies, back to back. A directory body is empty. A file body is
//     zero or more pairs of a 0x00 marker and an encrypted block, ended by a
//     single 0x01 marker.
//   - The table of contents: a 32 byte cleartext salt followed by one
//     encrypted block holding every row.
//   - The trailer: the offset of the table of contents as a little-endian
//     uint64, always the last 8 bytes of the file.
//
// An encrypted block is a 12 byte nonce, a little-endian uint32 ciphertext
// length and the ciphertext with its 16 byte tag.
//
// # Security Considerations
//
// Protected Against:
//   - Reading file contents or names without the password
//   - Tampering with any sealed chunk or with the table of contents
//
// Not Protected Against:
//   - Moving whole sealed chunks within one archive: chunks are not bound
//     to their position or owning file
//   - Metadata leakage (archive size, chunk count per file)
//   - Memory dumps while an archive is open
package sonorous
