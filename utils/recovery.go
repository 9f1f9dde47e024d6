package utils

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

var panicFilename = "faucet_panic_dump"

// MyRecover recovers from a panic on the calling goroutine, logs the stack
// and dumps it to a file so the claim that triggered it can be investigated.
// Deferred by the request handlers.
func MyRecover() {
	if err := recover(); err != nil {
		var buf [4096]byte
		n := runtime.Stack(buf[:], false)
		log.Criticalf("Recovered from panic: %v\n%s", err, buf[:n])
		// Dump panic file
		_ = DumpPanicInfo(fmt.Sprintf("%v", err) + "\n" + string(buf[:n]))
	}
}

// DumpPanicInfo writes info to a timestamped dump file in the system temp
// directory and returns the write error, if any.
func DumpPanicInfo(info string) error {
	currentTime := time.Now()
	fileSuffix := currentTime.Format("20060102150405") + "_" + strconv.FormatInt(currentTime.Unix(), 10)
	fileName := filepath.Join(os.TempDir(), panicFilename+"_"+fileSuffix)
	log.Infof("Dumping panic info to %v...", fileName)
	err := ioutil.WriteFile(fileName, []byte(info), 0666)
	if err != nil {
		log.Errorf("Unable to write panic file %v", fileName)
		return err
	}
	return nil
}
