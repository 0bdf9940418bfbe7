// Package avatar stores user avatars and their resized derivatives on disk.
//
// Layout: <root>/<user-id>/original.png plus one <width>.png per configured
// size. Writes for one user are serialized; readers only ever observe
// complete files because every file is written to a temporary name first and
// renamed into place.
package avatar

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
)

// ErrDecode is returned when the payload is not valid base64 or not an image.
var ErrDecode = errors.New("invalid image payload")

const originalName = "original.png"

// Size is a bounding box for a derivative.
type Size struct {
	Width  int
	Height int
}

// DefaultSizes are the derivative sizes generated for every upload.
var DefaultSizes = []Size{{400, 400}, {100, 100}, {50, 50}}

// Handle references a saved original.
type Handle struct {
	UserID   int64
	Dir      string
	Original string
}

// Store manages avatar files under a root directory.
type Store struct {
	root  string
	sizes []Size
	locks *userLocks
}

// NewStore returns a store rooted at root. With no sizes, DefaultSizes is used.
func NewStore(root string, sizes ...Size) *Store {
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	return &Store{root: root, sizes: sizes, locks: newUserLocks()}
}

// Root returns the avatars root directory.
func (s *Store) Root() string { return s.root }

// Sizes returns the configured derivative sizes.
func (s *Store) Sizes() []Size { return s.sizes }

// Dir is the directory holding userID's avatars.
func (s *Store) Dir(userID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(userID, 10))
}

// Create decodes a base64 image and saves it as the user's original.
// The user directory is created first; on ErrDecode nothing else is written.
func (s *Store) Create(userID int64, raw string) (*Handle, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	dir := s.Dir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	original := OriginalPath(dir)
	if err := writePNG(original, img); err != nil {
		return nil, fmt.Errorf("save original avatar: %w", err)
	}
	return &Handle{UserID: userID, Dir: dir, Original: original}, nil
}

// GenerateDerivatives writes one thumbnail per configured size next to the
// original. Sizes are independent: a failing size does not stop the others,
// and all failures are returned joined. Running it again overwrites the
// previous output.
func (s *Store) GenerateDerivatives(h Handle) error {
	unlock := s.locks.lock(h.UserID)
	defer unlock()

	src, err := imaging.Open(h.Original)
	if err != nil {
		return fmt.Errorf("open original avatar: %w", err)
	}

	var errs []error
	for _, size := range s.sizes {
		thumb := imaging.Fit(src, size.Width, size.Height, imaging.Lanczos)
		if err := writePNG(derivativePath(h.Dir, size), thumb); err != nil {
			errs = append(errs, fmt.Errorf("derivative %dx%d: %w", size.Width, size.Height, err))
		}
	}
	return errors.Join(errs...)
}

// FetchSmallest returns the base64 of userID's smallest derivative. The
// boolean is false when the derivative does not exist yet.
func (s *Store) FetchSmallest(userID int64) (string, bool, error) {
	data, err := os.ReadFile(derivativePath(s.Dir(userID), s.smallest()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read avatar: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), true, nil
}

func (s *Store) smallest() Size {
	smallest := s.sizes[0]
	for _, size := range s.sizes[1:] {
		if size.Width*size.Height < smallest.Width*smallest.Height {
			smallest = size
		}
	}
	return smallest
}

// OriginalPath is where the original lives inside a user directory.
func OriginalPath(dir string) string {
	return filepath.Join(dir, originalName)
}

func derivativePath(dir string, size Size) string {
	return filepath.Join(dir, strconv.Itoa(size.Width)+".png")
}

func writePNG(path string, img image.Image) error {
	return writeAtomic(path, func(w io.Writer) error {
		return imaging.Encode(w, img, imaging.PNG)
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
