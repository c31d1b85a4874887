package apimap

import (
	"os"
	"time"
)

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

func statMtime(filename string) (time.Time, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
