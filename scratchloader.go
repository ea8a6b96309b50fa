package cascadio

// FileLoader is the narrow interface of kernels that can only read from
// filesystem paths (IGES readers in particular have no stream input).
type FileLoader interface {
	LoadFile(path string, ft FileType, opt LoadOptions) (*LoadResult, error)
}

// ScratchLoader adapts a path-only kernel to the full Loader interface by
// routing byte buffers through a scratch FileHandle, which is released when
// loading finishes regardless of outcome.
type ScratchLoader struct {
	FileLoader
	// DisallowMemfd forces plain temp files, for kernels that open sibling
	// files next to the input path.
	DisallowMemfd bool
}

func (l *ScratchLoader) LoadBytes(data []byte, ft FileType, opt LoadOptions) (*LoadResult, error) {
	h, err := NewFileHandle(scratchExt(ft), !l.DisallowMemfd)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	if err := h.Write(data); err != nil {
		return nil, err
	}
	return l.LoadFile(h.Path(), ft, opt)
}

func scratchExt(ft FileType) string {
	if ft == FileTypeIGES {
		return ".igs"
	}
	return ".step"
}

var _ Loader = (*ScratchLoader)(nil)
