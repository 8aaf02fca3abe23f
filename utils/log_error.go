package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

const (
	// Log levels
	INFO = iota
	ERROR
	DEBUG
)

var (
	logMut      = sync.Mutex{}
	logFilePath = filepath.Join(
		APP_PATH,
		"logs",
		fmt.Sprintf(
			"kemono-harvester_v%s_%s.log",
			VERSION,
			time.Now().Format("2006-01-02"),
		),
	)
)

// Thread-safe logging function that appends to the dated log file
// in the logs directory under the app path.
func LogError(err error, errorMsg string, exit bool, lvl int) {
	if err == nil && errorMsg == "" {
		return
	}

	logMut.Lock()
	defer logMut.Unlock()

	os.MkdirAll(filepath.Dir(logFilePath), 0755)
	f, fileErr := os.OpenFile(
		logFilePath,
		os.O_WRONLY|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if fileErr != nil {
		fileErr = fmt.Errorf(
			"error opening log file: %v\nlog file path: %s",
			fileErr,
			logFilePath,
		)
		log.Println(color.RedString(fileErr.Error()))
		return
	}
	defer f.Close()

	lvlPrefix := "ERROR"
	switch lvl {
	case INFO:
		lvlPrefix = "INFO"
	case DEBUG:
		lvlPrefix = "DEBUG"
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	if err != nil {
		fmt.Fprintf(f, "%s %s: %v\n", now, lvlPrefix, err)
		if errorMsg != "" {
			fmt.Fprintf(f, "Additional info: %v\n", errorMsg)
		}
	} else {
		fmt.Fprintf(f, "%s %s: %v\n", now, lvlPrefix, errorMsg)
	}

	if exit {
		if err != nil {
			color.Red(err.Error())
		} else {
			color.Red(errorMsg)
		}
		os.Exit(1)
	}
}
