// config.go - Haupt-Konfigurationsfunktionen fuer xinfer
//
// Dieses Modul enthaelt:
// - Host: Gibt Scheme und Host des HTTP-Servers zurueck (XINFER_HOST)
// - AllowedOrigins: Gibt erlaubte Origins zurueck (XINFER_ORIGINS)
// - Device/DType: Standard-Geraet und Datentyp fuer neue Modelle
// - BatchConcurrency: Parallelitaet fuer Batch-Inferenz
// - LocalImages: Erlaubt lokale Bildpfade in Server-Anfragen
// - LogLevel: Gibt Log-Level zurueck (XINFER_DEBUG)
//
// Backend-Endpunkte sind ausgelagert in config_backends.go,
// Utility-Funktionen und AsMap/Values in config_utils.go.
package envconfig

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Host gibt Scheme und Host des xinfer-Servers zurueck
// Konfigurierbar via XINFER_HOST
// Default: http://127.0.0.1:8910
func Host() *url.URL {
	defaultPort := "8910"

	s := strings.TrimSpace(Var("XINFER_HOST"))
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "127.0.0.1", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// AllowedOrigins gibt erlaubte Origins zurueck
// Konfigurierbar via XINFER_ORIGINS (komma-separiert)
// Enthaelt Standard-Origins fuer localhost
func AllowedOrigins() (origins []string) {
	if s := Var("XINFER_ORIGINS"); s != "" {
		origins = strings.Split(s, ",")
	}

	for _, origin := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		origins = append(origins,
			fmt.Sprintf("http://%s", origin),
			fmt.Sprintf("https://%s", origin),
			fmt.Sprintf("http://%s", net.JoinHostPort(origin, "*")),
			fmt.Sprintf("https://%s", net.JoinHostPort(origin, "*")),
		)
	}

	return origins
}

// Device gibt das Standard-Geraet fuer neue Modelle zurueck
// Konfigurierbar via XINFER_DEVICE (cpu, cuda, mps)
// Default: cpu
func Device() string {
	if s := strings.ToLower(Var("XINFER_DEVICE")); s != "" {
		return s
	}
	return "cpu"
}

// DType gibt den Standard-Datentyp fuer neue Modelle zurueck
// Konfigurierbar via XINFER_DTYPE (float32, float16, bfloat16)
// Default: float32
func DType() string {
	if s := strings.ToLower(Var("XINFER_DTYPE")); s != "" {
		return s
	}
	return "float32"
}

// BatchConcurrency gibt die maximale Anzahl paralleler Requests einer Batch-Inferenz zurueck
// Konfigurierbar via XINFER_BATCH_CONCURRENCY
// Default: 1 (sequentiell)
var BatchConcurrency = Uint("XINFER_BATCH_CONCURRENCY", 1)

// LocalImages erlaubt lokale Dateipfade als Bildquelle in /api/infer
// Konfigurierbar via XINFER_LOCAL_IMAGES
// Default: false (nur URLs und base64)
var LocalImages = Bool("XINFER_LOCAL_IMAGES")

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via XINFER_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("XINFER_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
