package storagefs_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/mem"
)

// Example demonstrates the basic write/read cycle against an
// in-memory storage.
func Example() {
	storage := mem.New()
	if err := storage.Mount(); err != nil {
		log.Fatal(err)
	}
	defer storage.Unmount()

	root, err := storage.Root()
	if err != nil {
		log.Fatal(err)
	}

	f, err := root.CreateFile("greeting.txt", storagefs.ModeWrite)
	if err != nil {
		log.Fatal(err)
	}
	f.WriteString("hello")
	f.Close()

	f.Open(storagefs.ModeRead)
	content, _ := f.ReadString()
	f.Close()

	fmt.Println(content)
	// Output: hello
}

// Example_errorHandling demonstrates matching failures against the
// package sentinels.
func Example_errorHandling() {
	storage := mem.New()
	storage.Mount()
	defer storage.Unmount()

	root, _ := storage.Root()

	_, err := root.File("does-not-exist.txt")
	fmt.Println(storagefs.CodeOf(err))

	_, err = storagefs.JoinPath("/", string(make([]byte, 300)))
	fmt.Println(storagefs.CodeOf(err))

	// Output:
	// file not found
	// buffer overflow
}

// Example_decorators demonstrates stacking the cache and throttle
// wrappers around a backend.
func Example_decorators() {
	storage := storagefs.NewCachedStorage(
		storagefs.NewThrottledStorage(mem.New(), 1<<20, 1<<20),
	)
	storage.Mount()
	defer storage.Unmount()

	root, _ := storage.Root()
	f, _ := root.CreateFile("data.txt", storagefs.ModeWrite)
	f.WriteString("cached and throttled")
	f.Close()

	f.Open(storagefs.ModeRead)
	content, _ := f.ReadString()
	f.Close()

	fmt.Println(content)
	// Output: cached and throttled
}
