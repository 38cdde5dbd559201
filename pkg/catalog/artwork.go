// Package catalog fetches artwork listings from the Art Institute of Chicago
// API and renders the display fallbacks used by the table.
package catalog

import "strconv"

// Display fallbacks for missing artwork fields.
const (
	FallbackTitle        = "Untitled"
	FallbackOrigin       = "Unknown"
	FallbackArtist       = "Unknown"
	FallbackInscriptions = "None"
	FallbackDate         = "Unknown"
)

// Fields is the field list requested from the listing endpoint.
const Fields = "id,title,place_of_origin,artist_display,inscriptions,date_start,date_end"

// Artwork is one catalog record. Every field except ID may be null upstream;
// strings decode null as empty.
type Artwork struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	PlaceOfOrigin string `json:"place_of_origin"`
	ArtistDisplay string `json:"artist_display"`
	Inscriptions  string `json:"inscriptions"`
	DateStart     *int   `json:"date_start"`
	DateEnd       *int   `json:"date_end"`
}

// DisplayTitle returns the title or "Untitled".
func (a Artwork) DisplayTitle() string {
	return orDefault(a.Title, FallbackTitle)
}

// DisplayOrigin returns the place of origin or "Unknown".
func (a Artwork) DisplayOrigin() string {
	return orDefault(a.PlaceOfOrigin, FallbackOrigin)
}

// DisplayArtist returns the artist line or "Unknown".
func (a Artwork) DisplayArtist() string {
	return orDefault(a.ArtistDisplay, FallbackArtist)
}

// DisplayInscriptions returns the inscriptions or "None".
func (a Artwork) DisplayInscriptions() string {
	return orDefault(a.Inscriptions, FallbackInscriptions)
}

// DisplayDate renders the date column. A range needs both ends set and
// non-zero; otherwise whichever end is present is shown.
func (a Artwork) DisplayDate() string {
	start, end := a.DateStart, a.DateEnd

	if start != nil && end != nil && *start != 0 && *end != 0 {
		if *start == *end {
			return strconv.Itoa(*start)
		}
		return strconv.Itoa(*start) + " - " + strconv.Itoa(*end)
	}
	if start != nil {
		return strconv.Itoa(*start)
	}
	if end != nil {
		return strconv.Itoa(*end)
	}
	return FallbackDate
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Pagination is the pagination block of a listing response.
type Pagination struct {
	Total       int    `json:"total"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
	TotalPages  int    `json:"total_pages"`
	CurrentPage int    `json:"current_page"`
	NextPage    *int   `json:"next_page"`
	PrevURL     string `json:"prev_url,omitempty"`
	NextURL     string `json:"next_url,omitempty"`
}

// PageResponse is the body of GET /artworks.
type PageResponse struct {
	Pagination Pagination `json:"pagination"`
	Data       []Artwork  `json:"data"`
}

// IDs returns the record ids of the page in display order.
func (p *PageResponse) IDs() []int {
	ids := make([]int, len(p.Data))
	for i, a := range p.Data {
		ids[i] = a.ID
	}
	return ids
}
