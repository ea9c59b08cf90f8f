package usecases

import (
	"io"

	"remote-file-manager/internal/adapters/metrics"
)

const (
	directionDownload = "download"
	directionUpload   = "upload"
)

// progressWriter считает байты, отданные клиенту, и сообщает трекеру.
type progressWriter struct {
	w         io.Writer
	direction string
	report    func(total uint64)
	total     uint64
}

func newProgressWriter(w io.Writer, direction string, report func(uint64)) *progressWriter {
	return &progressWriter{w: w, direction: direction, report: report}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.total += uint64(n)
		p.report(p.total)
		metrics.RecordTransfer(p.direction, n)
	}
	return n, err
}

// progressReader то же для загрузки на хранилище.
type progressReader struct {
	r         io.Reader
	direction string
	report    func(total uint64)
	total     uint64
}

func newProgressReader(r io.Reader, direction string, report func(uint64)) *progressReader {
	return &progressReader{r: r, direction: direction, report: report}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.total += uint64(n)
		p.report(p.total)
		metrics.RecordTransfer(p.direction, n)
	}
	return n, err
}
