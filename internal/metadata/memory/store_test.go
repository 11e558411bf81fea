package memory

import (
	"testing"

	"segstore/internal/metadata"
	"segstore/internal/metadata/storetest"
)

func TestConformance(t *testing.T) {
	storetest.TestStore(t, func(t *testing.T) metadata.Store {
		return New(nil)
	})
}
