// Package images laedt Eingabebilder fuer die Inferenz.
//
// Quellen sind lokale Pfade, http(s)-URLs oder rohe Bytes. Geladene Bilder
// behalten ihre Original-Bytes, damit Backends sie unveraendert hochladen
// koennen. RGB() liefert bei Bedarf eine dekodierte Variante ohne Alpha-Kanal.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	// Decoder registrieren
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/7blacky7/xinfer/model"
)

// maxDownloadSize begrenzt per URL geladene Bilder
const maxDownloadSize = 64 << 20

// ErrFileNotFound wird zurueckgegeben wenn ein lokaler Pfad nicht existiert
var ErrFileNotFound = errors.New("images: file not found")

// Image ist ein geladenes, validiertes Eingabebild
type Image struct {
	// Source ist der urspruengliche Pfad bzw. die URL, leer bei rohen Bytes
	Source string
	Data   []byte
	Format Format
	Width  int
	Height int
}

// FromBytes validiert rohe Bild-Bytes und liest die Abmessungen
func FromBytes(data []byte) (*Image, error) {
	format := DetectFormat(data)
	if format == FormatUnknown {
		return nil, ErrUnknownFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("images: decode %s header: %w", format, err)
	}

	return &Image{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// IsURL prueft ob eine Quelle per HTTP geladen wird
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Load laedt ein Bild von einem lokalen Pfad oder einer http(s)-URL.
// Ist client nil, wird http.DefaultClient verwendet.
func Load(ctx context.Context, client *http.Client, src string) (*Image, error) {
	var (
		data []byte
		err  error
	)

	if IsURL(src) {
		data, err = download(ctx, client, src)
	} else {
		data, err = os.ReadFile(src)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, src)
		}
	}
	if err != nil {
		return nil, err
	}

	img, err := FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	img.Source = src
	return img, nil
}

// Parse laedt eine oder mehrere Quellen in Eingabereihenfolge
func Parse(ctx context.Context, client *http.Client, sources ...string) ([]*Image, error) {
	out := make([]*Image, 0, len(sources))
	for _, src := range sources {
		img, err := Load(ctx, client, src)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// FromInput laedt das Bild einer Inferenz-Anfrage.
// ImageData hat Vorrang vor Image.
func FromInput(ctx context.Context, client *http.Client, in model.Input) (*Image, error) {
	if len(in.ImageData) > 0 {
		img, err := FromBytes(in.ImageData)
		if err != nil {
			return nil, err
		}
		img.Source = in.Image
		return img, nil
	}
	if in.Image == "" {
		return nil, errors.New("images: no image given")
	}
	return Load(ctx, client, in.Image)
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("images: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("images: fetch %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("images: fetch %s: %w", url, err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("images: fetch %s: image larger than %d bytes", url, maxDownloadSize)
	}
	return data, nil
}

// ============================================================================
// Konvertierung
// ============================================================================

// Base64 gibt die Original-Bytes base64-kodiert zurueck
func (img *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// Filename gibt einen Dateinamen fuer Multipart-Uploads zurueck
func (img *Image) Filename() string {
	return "image" + img.Format.Extension()
}

// RGB dekodiert das Bild und entfernt den Alpha-Kanal vor weissem Hintergrund
func (img *Image) RGB() (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("images: decode %s: %w", img.Format, err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst, nil
}

// JPEG gibt das Bild als JPEG zurueck, bei Bedarf auf maxSide Pixel
// (laengste Seite) verkleinert. maxSide <= 0 deaktiviert das Skalieren.
// JPEG-Eingaben ohne Skalierung werden unveraendert zurueckgegeben.
func (img *Image) JPEG(maxSide int) ([]byte, error) {
	needsResize := maxSide > 0 && max(img.Width, img.Height) > maxSide
	if img.Format == FormatJPEG && !needsResize {
		return img.Data, nil
	}

	rgb, err := img.RGB()
	if err != nil {
		return nil, err
	}

	var out image.Image = rgb
	if needsResize {
		w, h := fitSize(img.Width, img.Height, maxSide)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), rgb, rgb.Bounds(), draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("images: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// fitSize skaliert (w, h) so, dass die laengste Seite maxSide ist
func fitSize(w, h, maxSide int) (int, int) {
	if w >= h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}
