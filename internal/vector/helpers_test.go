package vector

// Vector returns a copy of the vector stored under id.
func (f *FlatIndex) Vector(id uint64) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if id >= f.size {
		return nil, false
	}
	off := id * uint64(f.dimension)
	out := make([]float32, f.dimension)
	copy(out, f.data[off:off+uint64(f.dimension)])
	return out, true
}
