// Command apack creates, lists, extracts, and verifies APACK archives
// from the local filesystem.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/config"
	"github.com/kenneth/apack/internal/debugflag"
	"github.com/kenneth/apack/providers"
	"github.com/kenneth/apack/providers/aead"
	"github.com/kenneth/apack/providers/checksum"
	"github.com/kenneth/apack/providers/compress"
	"github.com/kenneth/apack/providers/kdf"
	"github.com/kenneth/apack/reader"
	"github.com/kenneth/apack/writer"
)

var log = logrus.New()

func main() {
	if debugflag.Enabled() {
		log.SetLevel(logrus.DebugLevel)
	}
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "create":
		err = runCreate(args)
	case "extract":
		err = runExtract(args)
	case "list":
		err = runList(args)
	case "info":
		err = runInfo(args)
	case "verify":
		err = runVerify(args)
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "apack: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `apack — seekable chunked archive tool

Usage:
  apack create  -out FILE [-chunk-size N] [-compression none|zstd|lz4] [-checksum crc32|xxh3-64|xxh3-128] [-encrypt] [-ecc-parity N] FILE...
  apack extract -in FILE -out DIR [-decrypt]
  apack list    -in FILE
  apack info    -in FILE
  apack verify  -in FILE [-decrypt]`)
}

// defaultBundle registers one provider per closed *ID enumeration, so
// any archive this binary can itself produce, it can also read back.
func defaultBundle() *providers.Bundle {
	b := providers.NewBundle()
	b.WithChecksum(checksum.CRC32{})
	b.WithChecksum(checksum.XXH3_64{})
	b.WithChecksum(checksum.XXH3_128{})
	b.WithCompressor(compress.NewZstd(3))
	b.WithCompressor(compress.LZ4{})
	b.WithAEAD(aead.AESGCM{})
	b.WithAEAD(aead.ChaCha20Poly1305{})
	b.WithKDF(kdf.NewArgon2id())
	b.WithKDF(kdf.NewPBKDF2SHA256(600_000))
	return b
}

func parseChecksum(s string) (apack.ChecksumID, error) {
	switch strings.ToLower(s) {
	case "crc32":
		return apack.ChecksumCRC32, nil
	case "xxh3-64", "xxh3_64", "":
		return apack.ChecksumXXH3_64, nil
	case "xxh3-128", "xxh3_128":
		return apack.ChecksumXXH3_128, nil
	}
	return 0, fmt.Errorf("unknown checksum algorithm %q", s)
}

func parseCompression(s string) (apack.CompressionID, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return apack.CompressionNone, nil
	case "zstd":
		return apack.CompressionZstd, nil
	case "lz4":
		return apack.CompressionLZ4, nil
	}
	return 0, fmt.Errorf("unknown compression algorithm %q", s)
}

func parseEncryption(s string) (apack.EncryptionID, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return apack.EncryptionNone, nil
	case "aes-256-gcm", "aes256gcm", "aes":
		return apack.EncryptionAES256GCM, nil
	case "chacha20-poly1305", "chacha20poly1305", "chacha":
		return apack.EncryptionChaCha20Poly1305, nil
	}
	return 0, fmt.Errorf("unknown encryption algorithm %q", s)
}

func readPassword(prompt string) ([]byte, error) {
	if env := os.Getenv("APACK_PASSWORD"); env != "" {
		return []byte(env), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	out := fs.String("out", "", "output archive path")
	chunkSize := fs.Uint("chunk-size", config.DefaultChunkSize, "chunk size in bytes")
	compression := fs.String("compression", "none", "compression: none, zstd, lz4")
	checksumAlgo := fs.String("checksum", "xxh3-64", "checksum: crc32, xxh3-64, xxh3-128")
	encryptionAlgo := fs.String("encryption", "aes-256-gcm", "encryption cipher used when -encrypt is set")
	encrypt := fs.Bool("encrypt", false, "encrypt the archive, prompting for a password")
	eccParity := fs.Int("ecc-parity", 0, "Reed-Solomon parity shards per entry (0 disables ECC)")
	streamMode := fs.Bool("stream", false, "force stream mode (no random-access trailer)")
	fs.Parse(args)

	if *out == "" || fs.NArg() == 0 {
		return fmt.Errorf("create requires -out and at least one input file")
	}

	compID, err := parseCompression(*compression)
	if err != nil {
		return err
	}
	checksumID, err := parseChecksum(*checksumAlgo)
	if err != nil {
		return err
	}
	encID := apack.EncryptionNone
	if *encrypt {
		encID, err = parseEncryption(*encryptionAlgo)
		if err != nil {
			return err
		}
	}

	cfg, err := config.New(
		config.WithChunkSize(uint32(*chunkSize)),
		config.WithCompression(compID),
		config.WithChecksum(checksumID),
		config.WithEncryption(encID),
		config.WithRandomAccess(!*streamMode),
		config.WithECCParity(*eccParity),
	)
	if err != nil {
		return err
	}

	var password []byte
	if *encrypt {
		password, err = readPassword("archive password: ")
		if err != nil {
			return err
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	w, err := writer.New(ctx, f, cfg, defaultBundle(), password)
	if err != nil {
		return err
	}
	if err := w.Create(); err != nil {
		return err
	}
	for _, path := range fs.Args() {
		if err := addFile(w, path); err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
		log.Infof("added %s", path)
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.Infof("wrote %s with %d entries", *out, w.EntryCount())
	return nil
}

func addFile(w *writer.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	attrs := []apack.Attribute{
		{Key: "mode", Kind: apack.AttrInt64, Int: int64(info.Mode().Perm())},
		{Key: "mtime_unix", Kind: apack.AttrInt64, Int: info.ModTime().Unix()},
	}
	_, err = w.AddEntry(filepath.ToSlash(path), mimeTypeFor(path), attrs, f)
	return err
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func openArchive(path string, decrypt bool) (*reader.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	cfg, err := config.New()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	var password []byte
	if decrypt {
		password, err = readPassword("archive password: ")
		if err != nil {
			f.Close()
			return nil, nil, err
		}
	}
	r, err := reader.Open(context.Background(), f, info.Size(), cfg, defaultBundle(), password)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return r, func() { f.Close() }, nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	in := fs.String("in", "", "archive path")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("list requires -in")
	}
	r, closeFn, err := openArchive(*in, false)
	if err != nil {
		return err
	}
	defer closeFn()
	for _, e := range r.Entries() {
		fmt.Printf("%8d  %12d  %s\n", e.ID, e.OriginalSize, e.Name)
	}
	return nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	in := fs.String("in", "", "archive path")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("info requires -in")
	}
	r, closeFn, err := openArchive(*in, false)
	if err != nil {
		return err
	}
	defer closeFn()
	fh := r.FileHeader()
	fmt.Printf("format version:  %d.%d\n", fh.VersionMajor, fh.VersionMinor)
	fmt.Printf("chunk size:      %d\n", fh.DefaultChunkSize)
	fmt.Printf("random access:   %v\n", fh.RandomAccess())
	fmt.Printf("stream mode:     %v\n", fh.StreamMode())
	fmt.Printf("encrypted:       %v\n", fh.Encrypted())
	fmt.Printf("entry count:     %d\n", fh.EntryCount)
	return nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	in := fs.String("in", "", "archive path")
	out := fs.String("out", "", "destination directory")
	decrypt := fs.Bool("decrypt", false, "prompt for a password to decrypt")
	fs.Parse(args)
	if *in == "" || *out == "" {
		return fmt.Errorf("extract requires -in and -out")
	}
	r, closeFn, err := openArchive(*in, *decrypt)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	for _, e := range r.Entries() {
		dest := filepath.Join(*out, filepath.FromSlash(e.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		if err := r.OpenEntry(ctx, e.ID, f); err != nil {
			f.Close()
			return fmt.Errorf("extract %s: %w", e.Name, err)
		}
		f.Close()
		log.Infof("extracted %s", e.Name)
	}
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	in := fs.String("in", "", "archive path")
	decrypt := fs.Bool("decrypt", false, "prompt for a password to decrypt")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("verify requires -in")
	}
	r, closeFn, err := openArchive(*in, *decrypt)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := r.Verify(context.Background()); err != nil {
		return err
	}
	log.Infof("%s: ok (%d entries)", *in, len(r.Entries()))
	return nil
}
