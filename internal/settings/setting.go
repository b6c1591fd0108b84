package settings

// IntSetting is an int stored under a fixed key
type IntSetting struct {
	p   Provider
	key string
	def int
}

func NewIntSetting(p Provider, key string, def int) *IntSetting {
	return &IntSetting{p: p, key: key, def: def}
}

func (s *IntSetting) Key() string  { return s.key }
func (s *IntSetting) Default() int { return s.def }
func (s *IntSetting) Get() int     { return s.p.GetInt(s.key, s.def) }
func (s *IntSetting) Set(v int)    { s.p.PutInt(s.key, v) }

// Int64Setting is an int64 stored under a fixed key
type Int64Setting struct {
	p   Provider
	key string
	def int64
}

func NewInt64Setting(p Provider, key string, def int64) *Int64Setting {
	return &Int64Setting{p: p, key: key, def: def}
}

func (s *Int64Setting) Key() string    { return s.key }
func (s *Int64Setting) Default() int64 { return s.def }
func (s *Int64Setting) Get() int64     { return s.p.GetInt64(s.key, s.def) }
func (s *Int64Setting) Set(v int64)    { s.p.PutInt64(s.key, v) }

// BoolSetting is a bool stored under a fixed key
type BoolSetting struct {
	p   Provider
	key string
	def bool
}

func NewBoolSetting(p Provider, key string, def bool) *BoolSetting {
	return &BoolSetting{p: p, key: key, def: def}
}

func (s *BoolSetting) Key() string   { return s.key }
func (s *BoolSetting) Default() bool { return s.def }
func (s *BoolSetting) Get() bool     { return s.p.GetBool(s.key, s.def) }
func (s *BoolSetting) Set(v bool)    { s.p.PutBool(s.key, v) }

// Toggle flips the value and returns the new one
func (s *BoolSetting) Toggle() bool {
	v := !s.Get()
	s.Set(v)
	return v
}

// StringSetting is a string stored under a fixed key
type StringSetting struct {
	p   Provider
	key string
	def string
}

func NewStringSetting(p Provider, key string, def string) *StringSetting {
	return &StringSetting{p: p, key: key, def: def}
}

func (s *StringSetting) Key() string     { return s.key }
func (s *StringSetting) Default() string { return s.def }
func (s *StringSetting) Get() string     { return s.p.GetString(s.key, s.def) }
func (s *StringSetting) Set(v string)    { s.p.PutString(s.key, v) }
