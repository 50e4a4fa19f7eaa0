// Package export serializes recommendation results for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"bookrec/internal/catalog"
	"bookrec/internal/isbn"
)

// DefaultFilename is the name offered for downloaded results.
const DefaultFilename = "recommended_books.csv"

// Header lists the exported columns, named as in the metadata catalog.
func Header() []string {
	h := []string{
		"isbn13", "title", "authors", "simple_categories", "description",
		"thumbnail", "large_thumbnail", "num_pages", "average_rating", "published_year",
	}
	for _, e := range catalog.Emotions {
		h = append(h, string(e))
	}
	return h
}

// WriteCSV writes books with a header row. Missing numeric values are empty cells.
func WriteCSV(w io.Writer, books []catalog.Book) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, b := range books {
		if err := cw.Write(record(b)); err != nil {
			return fmt.Errorf("write book %d: %w", b.ISBN, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes books to path, replacing any existing file.
func WriteFile(path string, books []catalog.Book) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, books); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func record(b catalog.Book) []string {
	rec := []string{
		isbn.Format(b.ISBN),
		b.Title,
		b.Authors,
		b.Category,
		b.Description,
		b.Thumbnail,
		b.LargeThumbnail,
		optInt(b.NumPages),
		optFloat(b.AverageRating),
		optInt(b.PublishedYear),
	}
	for _, e := range catalog.Emotions {
		if v, ok := b.Emotions[e]; ok {
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		} else {
			rec = append(rec, "")
		}
	}
	return rec
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
