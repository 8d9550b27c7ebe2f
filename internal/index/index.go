package index

// DocumentIndex defines the catalog operations. Consumers depend on this
// interface rather than the concrete *DB type.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow) (int64, error)
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	GetDocumentByID(id int64) (*DocumentRow, error)
	ListDocuments(query string) ([]DocumentRow, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Close() error
}

var _ DocumentIndex = (*DB)(nil)
