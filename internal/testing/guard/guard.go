package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FLAELLE_TEST_MODE") == "" {
			_ = os.Setenv("FLAELLE_TEST_MODE", "1")
		}
	})
}
