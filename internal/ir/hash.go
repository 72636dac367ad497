package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed IDs. The version suffix allows the
// algorithm to change without colliding with old IDs.
const (
	DomainTrace    = "kinda/trace/v1"
	DomainManifest = "kinda/manifest/v1"
)

// hashWithDomain returns hex(SHA256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TraceID computes the content-addressed ID of a trace record. The record's
// own ID field is ignored.
func TraceID(r TraceRecord) (string, error) {
	args := r.Args
	if args == nil {
		args = IRArray{}
	}
	obj := IRObject{
		"seq":      IRInt(r.Seq),
		"kind":     IRString(r.Kind),
		"object":   IRString(r.Object),
		"event":    IRString(r.Event),
		"listener": IRString(r.Listener),
		"args":     args,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TraceID: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// ManifestHash identifies a compiled class spec by content.
func ManifestHash(spec ClassSpec) (string, error) {
	includes := make(IRArray, len(spec.Includes))
	for i, inc := range spec.Includes {
		includes[i] = IRString(inc)
	}
	obj := IRObject{
		"name":     IRString(spec.Name),
		"version":  IRString(spec.Version),
		"extends":  IRString(spec.Extends),
		"includes": includes,
		"values":   orEmpty(spec.Values),
		"statics":  orEmpty(spec.Statics),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ManifestHash: %w", err)
	}
	return hashWithDomain(DomainManifest, canonical), nil
}

func orEmpty(obj IRObject) IRObject {
	if obj == nil {
		return IRObject{}
	}
	return obj
}
