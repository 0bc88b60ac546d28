package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
)

func TestClosersCloseInReverseOrder(t *testing.T) {
	var (
		order     []string
		resources closers
	)
	resources.add("storage", func() error {
		order = append(order, "storage")
		return nil
	})
	resources.add("redis", func() error {
		order = append(order, "redis")
		return errors.New("already closed")
	})

	var buf bytes.Buffer
	resources.closeAll(log.NewLogfmtLogger(&buf))

	assert.Equal(t, []string{"redis", "storage"}, order)
	assert.Contains(t, buf.String(), "resource=redis")
	assert.Contains(t, buf.String(), `err="already closed"`)
}

func TestClosersEmpty(t *testing.T) {
	var resources closers
	assert.NotPanics(t, func() { resources.closeAll(log.NewNopLogger()) })
}
