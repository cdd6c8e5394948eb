package imaging

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	_ "image/jpeg"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// DefaultMaxDim bounds the longest page dimension submitted to a provider.
const DefaultMaxDim = 4096

// Page is one decoded, resized, RGB-encoded page ready for extraction.
type Page struct {
	Image  *image.NRGBA
	Width  int
	Height int
	Index  int // zero-based, original page order
}

// PNG encodes the page for transmission to a provider.
func (p Page) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.Image); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", p.Index, err)
	}
	return buf.Bytes(), nil
}

// Normalizer decodes raw invoice files into provider-ready page sequences.
type Normalizer struct {
	maxDim int
	logger *slog.Logger
}

func NewNormalizer(maxDim int, logger *slog.Logger) *Normalizer {
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{maxDim: maxDim, logger: logger}
}

// Normalize decodes raw bytes in sourceFormat ("tiff", "png", ...) into an
// ordered page sequence. Multi-page TIFFs yield one Page per directory.
// Unsupported or corrupt input fails fast with an IMAGE_PROCESSING error
// carrying fileRef.
func (n *Normalizer) Normalize(raw []byte, sourceFormat, fileRef string) ([]Page, error) {
	start := time.Now()

	var (
		pages []Page
		err   error
	)
	switch constants.MapExtToFormat(sourceFormat) {
	case constants.TIFF:
		pages, err = n.decodeTIFF(raw)
	case constants.IMAGE:
		pages, err = n.decodeSingle(raw)
	default:
		err = fmt.Errorf("unsupported source format: %q", sourceFormat)
	}
	if err != nil {
		n.logger.Error("imaging.normalize.failed", "file", fileRef, "format", sourceFormat, "error", err)
		return nil, common.ImageProcessingError(fileRef, err)
	}

	for i := range pages {
		pages[i] = n.boundPage(pages[i])
	}

	n.logger.Info("imaging.normalize.ok",
		"file", fileRef,
		"format", sourceFormat,
		"pages", len(pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func (n *Normalizer) decodeSingle(raw []byte) ([]Page, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return []Page{{Image: imaging.Clone(img), Index: 0}}, nil
}

// decodeTIFF decodes every directory of a (possibly multi-page) TIFF.
// The stdlib-adjacent tiff decoder only reads the first IFD, so pages after
// the first are reached by re-pointing the header at each directory offset.
func (n *Normalizer) decodeTIFF(raw []byte) ([]Page, error) {
	offsets, order, err := tiffPageOffsets(raw)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(offsets))
	for i, off := range offsets {
		single := make([]byte, len(raw))
		copy(single, raw)
		order.PutUint32(single[4:8], off)

		img, err := tiff.Decode(bytes.NewReader(single))
		if err != nil {
			return nil, fmt.Errorf("decode tiff page %d: %w", i, err)
		}
		pages = append(pages, Page{Image: imaging.Clone(img), Index: i})
	}
	return pages, nil
}

// tiffPageOffsets walks the IFD chain and returns the absolute offset of each
// page directory, plus the file's byte order.
func tiffPageOffsets(raw []byte) ([]uint32, binary.ByteOrder, error) {
	if len(raw) < 8 {
		return nil, nil, fmt.Errorf("truncated tiff header")
	}

	var order binary.ByteOrder
	switch string(raw[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("not a tiff file")
	}
	if order.Uint16(raw[2:4]) != 42 {
		return nil, nil, fmt.Errorf("unsupported tiff version")
	}

	var offsets []uint32
	off := order.Uint32(raw[4:8])
	for off != 0 {
		if int(off)+2 > len(raw) {
			return nil, nil, fmt.Errorf("ifd offset %d out of range", off)
		}
		offsets = append(offsets, off)

		count := order.Uint16(raw[off : off+2])
		next := int(off) + 2 + int(count)*12
		if next+4 > len(raw) {
			return nil, nil, fmt.Errorf("ifd at %d truncated", off)
		}
		off = order.Uint32(raw[next : next+4])

		if len(offsets) > 1024 {
			return nil, nil, fmt.Errorf("ifd chain too long (cyclic?)")
		}
	}
	if len(offsets) == 0 {
		return nil, nil, fmt.Errorf("tiff has no pages")
	}
	return offsets, order, nil
}

// boundPage resizes so the longest dimension stays within maxDim, preserving
// aspect ratio. Never upscales.
func (n *Normalizer) boundPage(p Page) Page {
	b := p.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > n.maxDim || h > n.maxDim {
		p.Image = imaging.Fit(p.Image, n.maxDim, n.maxDim, imaging.Lanczos)
		b = p.Image.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	p.Width = w
	p.Height = h
	return p
}
