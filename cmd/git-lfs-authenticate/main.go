// git-lfs-authenticate is invoked over SSH by the Git host as
// `authenticate <repo> <operation> [oid]`. It checks repository access
// through gitolite and prints a short-lived repo token for the LFS
// server. Errors reach the invoking user as one concise line on
// stderr; full detail goes to the log file only.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"lfs-gateway/internal/authhelper"
	"lfs-gateway/internal/token"
)

func initLogFile() (*os.File, error) {
	if err := os.MkdirAll("log", 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join("log", "output.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return f, nil
}

func main() {
	logFile, err := initLogFile()
	if err != nil {
		// No backup way to log this; say as little as possible.
		fmt.Fprintln(os.Stderr, "Server error")
		os.Exit(1)
	}
	defer logFile.Close()

	log.Printf("Running git-lfs-authenticate with arguments: %v", os.Args[1:])

	config, err := authhelper.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Server error")
		log.Printf("LoadConfigError: %v", err)
		os.Exit(1)
	}

	codec := token.NewCodec([]byte(config.JWTSecret), config.ExpiresIn)
	user := os.Getenv("GL_USER")

	response, cmdErr := authhelper.Run(
		os.Args[1:], user, authhelper.GitoliteOracle{}, codec, config.BaseURL, config.ExpiresIn)
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, cmdErr.Error())
		log.Print(cmdErr.Log())
		os.Exit(1)
	}

	log.Printf("Successfully ran git-lfs-authenticate with arguments: %v", os.Args[1:])
	fmt.Println(response)
}
