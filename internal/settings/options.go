package settings

// Option is one value of an enumerated setting. Key is what gets stored.
type Option interface {
	comparable
	Key() string
}

// Choice is the type-erased view of an OptionsSetting used by settings screens
type Choice interface {
	Key() string
	OptionKeys() []string
	SelectedIndex() int
	SelectIndex(i int)
}

// OptionsSetting stores one of a fixed, ordered set of options by key.
// A stored key that matches no option reads as the default.
type OptionsSetting[T Option] struct {
	p       Provider
	key     string
	def     T
	options []T
}

var _ Choice = (*OptionsSetting[PostViewMode])(nil)

func NewOptionsSetting[T Option](p Provider, key string, def T, options ...T) *OptionsSetting[T] {
	return &OptionsSetting[T]{p: p, key: key, def: def, options: options}
}

func (s *OptionsSetting[T]) Key() string { return s.key }
func (s *OptionsSetting[T]) Default() T  { return s.def }

// Options returns the options in display order
func (s *OptionsSetting[T]) Options() []T {
	out := make([]T, len(s.options))
	copy(out, s.options)
	return out
}

func (s *OptionsSetting[T]) Get() T {
	stored := s.p.GetString(s.key, s.def.Key())
	for _, o := range s.options {
		if o.Key() == stored {
			return o
		}
	}
	return s.def
}

func (s *OptionsSetting[T]) Set(v T) {
	s.p.PutString(s.key, v.Key())
}

func (s *OptionsSetting[T]) OptionKeys() []string {
	keys := make([]string, len(s.options))
	for i, o := range s.options {
		keys[i] = o.Key()
	}
	return keys
}

// SelectedIndex returns the position of the current value, or -1 when the
// default is not one of the options.
func (s *OptionsSetting[T]) SelectedIndex() int {
	cur := s.Get()
	for i, o := range s.options {
		if o == cur {
			return i
		}
	}
	return -1
}

// SelectIndex stores the option at i. Out of range indexes are ignored.
func (s *OptionsSetting[T]) SelectIndex(i int) {
	if i < 0 || i >= len(s.options) {
		return
	}
	s.Set(s.options[i])
}
