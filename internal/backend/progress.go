package backend

import "io"

// progressReader reports the fraction of size consumed through r.
type progressReader struct {
	r          io.Reader
	size       int64
	read       int64
	onProgress func(float64)
}

func newProgressReader(r io.Reader, size int64, onProgress func(float64)) io.Reader {
	if onProgress == nil || size <= 0 {
		return r
	}
	return &progressReader{r: r, size: size, onProgress: onProgress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		frac := float64(p.read) / float64(p.size)
		if frac > 1 {
			frac = 1
		}
		p.onProgress(frac)
	}
	return n, err
}
