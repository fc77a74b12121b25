package wire

// Archive is the cursor-addressable stream a record is loaded from or
// saved to. *Reader and *Writer implement it.
type Archive interface {
	Tell() int64
	Seek(pos int64) error
	IsLoading() bool
	Name() string
}

// Bookmark remembers a cursor position so a speculative read can be undone.
type Bookmark struct {
	ar  Archive
	pos int64
}

// Mark captures the current position of ar.
func Mark(ar Archive) Bookmark {
	return Bookmark{ar: ar, pos: ar.Tell()}
}

// Pos returns the captured position.
func (b Bookmark) Pos() int64 { return b.pos }

// Restore seeks back to the captured position.
func (b Bookmark) Restore() error {
	return b.ar.Seek(b.pos)
}
