package main

import (
	"testing"

	_ "github.com/odyssey-erp/odyssey-books/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	main()
}
