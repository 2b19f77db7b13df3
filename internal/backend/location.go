package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"cleantech-console/internal/domain"
	"cleantech-console/internal/listing"
)

// LocationLoader feeds the cascading picker from the location resources.
type LocationLoader struct {
	c *Client
}

func NewLocationLoader(c *Client) *LocationLoader { return &LocationLoader{c: c} }

var locationPaths = map[listing.Level]string{
	listing.LevelArea:         "area",
	listing.LevelCity:         "city",
	listing.LevelOrganization: "organization",
	listing.LevelBuilding:     "building",
	listing.LevelFloor:        "floor",
}

// LoadOptions lists every option of level under parentID. The parent is
// sent with the filter key of the level above.
func (l *LocationLoader) LoadOptions(ctx context.Context, level listing.Level, parentID int) ([]domain.LocationOption, error) {
	path, ok := locationPaths[level]
	if !ok {
		return nil, fmt.Errorf("no options for location level %s", level)
	}
	q := url.Values{}
	if parentID > 0 && level > listing.LevelArea {
		q.Set((level - 1).FilterKey(), strconv.Itoa(parentID))
	}
	return NewResource[domain.LocationOption](l.c, path).All(ctx, q, false)
}
