package feedback

// Kind tags where an attached file came from.
type Kind string

const (
	// KindUser is a file the user picked; it is never deleted.
	KindUser Kind = "User"
	// KindLog is an application log attached in place.
	KindLog Kind = "Log"
	// KindLogCopy is a temporary copy of a log.
	KindLogCopy Kind = "LogCopy"
	// KindState is a temporary dump of application state.
	KindState Kind = "State"
	// KindDump is a temporary dump of the recent action history.
	KindDump Kind = "Dump"
)

var systemGenerated = map[Kind]bool{
	KindState:   true,
	KindDump:    true,
	KindLogCopy: true,
}

// SystemGenerated reports whether files of this kind live in temporary
// storage and are removed once the submission that carried them completes.
func (k Kind) SystemGenerated() bool {
	return systemGenerated[k]
}

// File is one attachment of the response being composed.
type File struct {
	// Filename is the display name and the key of the attachment.
	Filename string
	FilePath string
	Kind     Kind
	Size     int64
}
