package persist

// Store keeps named values of one type in a directory.
type Store[T any] struct {
	dir   string
	codec Codec
}

// NewStore returns a store writing to dir with codec.
func NewStore[T any](dir string, codec Codec) *Store[T] {
	return &Store[T]{dir: dir, codec: codec}
}

// Dir returns the storage directory.
func (s *Store[T]) Dir() string {
	return s.dir
}

// Save writes value under name.
func (s *Store[T]) Save(name string, value *T) error {
	return SaveState(s.dir, name, s.codec, value)
}

// Load reads the value stored under name.
func (s *Store[T]) Load(name string) (*T, error) {
	var value T

	err := LoadState(s.dir, name, s.codec, &value)
	if err != nil {
		return nil, err
	}

	return &value, nil
}
