package storage

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

const progressInterval = 10 * time.Second

// progressReader logs transfer progress while a large artifact streams in.
type progressReader struct {
	io.Reader
	io.Closer
	message string
	key     string
	size    int64
	started bool
	n       atomic.Int64
	closed  atomic.Bool
}

func newProgressReader(r io.ReadCloser, message, key string, size int64) io.ReadCloser {
	return &progressReader{
		Reader:  r,
		Closer:  r,
		message: message,
		key:     key,
		size:    size,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	if !p.started {
		p.started = true
		go func() {
			for !p.closed.Load() {
				n := p.n.Load()
				log.Info(p.message, "file", p.key, "current", n, "total", p.size, "percent", n*100/max(p.size, 1))
				time.Sleep(progressInterval)
			}
		}()
	}
	n, err := p.Reader.Read(b)
	p.n.Add(int64(n))
	return n, err
}

func (p *progressReader) Close() error {
	p.closed.Store(true)
	return p.Closer.Close()
}

// progressWriter is the outbound counterpart, used when persisting proving
// keys that can run to gigabytes.
type progressWriter struct {
	PublishingWriter
	key    string
	size   int64
	n      atomic.Int64
	done   atomic.Bool
	ticker bool
}

func newProgressWriter(w PublishingWriter, key string, size int64) *progressWriter {
	return &progressWriter{PublishingWriter: w, key: key, size: size}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	if !p.ticker {
		p.ticker = true
		go func() {
			for !p.done.Load() {
				n := p.n.Load()
				log.Info("Writing artifact", "file", p.key, "current", n, "total", p.size, "percent", n*100/max(p.size, 1))
				time.Sleep(progressInterval)
			}
		}()
	}
	n, err := p.PublishingWriter.Write(b)
	p.n.Add(int64(n))
	return n, err
}

func (p *progressWriter) Close() error {
	p.done.Store(true)
	return p.PublishingWriter.Close()
}

func (p *progressWriter) Abort() error {
	p.done.Store(true)
	return p.PublishingWriter.Abort()
}
