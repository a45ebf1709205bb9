package providers

import (
	"fmt"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
)

func unknownChecksum(id apack.ChecksumID) error {
	return apackerr.New(apackerr.KindConfiguration, "bundle-checksum-func", fmt.Errorf("no checksum provider registered for id %d", id))
}

func unknownCompressor(id apack.CompressionID) error {
	return apackerr.New(apackerr.KindConfiguration, "bundle-compressor", fmt.Errorf("no compressor registered for id %d", id))
}

func unknownAEAD(id apack.EncryptionID) error {
	return apackerr.New(apackerr.KindConfiguration, "bundle-aead", fmt.Errorf("no aead provider registered for id %d", id))
}

func unknownKDF(id apack.KDFID) error {
	return apackerr.New(apackerr.KindConfiguration, "bundle-kdf", fmt.Errorf("no kdf provider registered for id %d", id))
}
