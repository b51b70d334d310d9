package importer

// Archive-level error codes. These abort the whole import before any
// product directory is processed.
const (
	CodeInvalidFileType = "InvalidFileType"
	CodeArchiveTooLarge = "ArchiveTooLarge"
	CodeEmptyArchive    = "EmptyArchive"
	CodeInvalidArchive  = "InvalidArchive"
	CodeNoProductsFound = "NoProductsFound"
)

// Per-product error codes. A failure with one of these is isolated to a
// single directory's ImportResult and never aborts sibling directories.
const (
	CodeManifestMissing      = "ManifestMissing"
	CodeManifestInvalid      = "ManifestInvalid"
	CodeManifestIncomplete   = "ManifestIncomplete"
	CodeImageEntryNotFound   = "ImageEntryNotFound"
	CodeImageReadFailed      = "ImageReadFailed"
	CodeImageUploadFailed    = "ImageUploadFailed"
	CodePublicUrlUnavailable = "PublicUrlUnavailable"
	CodeNoImagesProcessed    = "NoImagesProcessed"
	CodeInvalidPrice         = "InvalidPrice"
	CodePersistenceError     = "PersistenceError"
)

// ArchiveError aborts an entire import call.
type ArchiveError struct {
	Code    string
	Message string
}

func (e *ArchiveError) Error() string {
	return e.Message
}

// ProductError fails one product directory's pipeline. Message is the
// human-readable string surfaced in the ImportResult; it names the failing
// stage and the slug when known.
type ProductError struct {
	Code    string
	Slug    string
	Message string
}

func (e *ProductError) Error() string {
	return e.Message
}
