package geometry

import "strconv"

// SRS describes a spatial reference system the way GeoPackage
// gpkg_spatial_ref_sys stores it.
type SRS struct {
	Name         string
	ID           int
	Organization string
	OrgID        int
	Definition   string
	Description  string
}

const wktETRS89UTM33 = `PROJCS["ETRS89 / UTM zone 33N",GEOGCS["ETRS89",DATUM["European_Terrestrial_Reference_System_1989",SPHEROID["GRS 1980",6378137,298.257222101,AUTHORITY["EPSG","7019"]],TOWGS84[0,0,0,0,0,0,0],AUTHORITY["EPSG","6258"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4258"]],PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",15],PARAMETER["scale_factor",0.9996],PARAMETER["false_easting",500000],PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","25833"]]`

// RequiredSRS are the rows every GeoPackage must contain.
var RequiredSRS = []SRS{
	{
		Name:         "WGS 84 geodetic",
		ID:           4326,
		Organization: "EPSG",
		OrgID:        4326,
		Definition:   `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`,
		Description:  "longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid",
	},
	{
		Name:         "Undefined cartesian SRS",
		ID:           -1,
		Organization: "NONE",
		OrgID:        -1,
		Definition:   "undefined",
		Description:  "undefined cartesian coordinate reference system",
	},
	{
		Name:         "Undefined geographic SRS",
		ID:           0,
		Organization: "NONE",
		OrgID:        0,
		Definition:   "undefined",
		Description:  "undefined geographic coordinate reference system",
	},
}

// knownSRS holds definitions for the systems NVDB serves.
var knownSRS = map[int]SRS{
	25833: {
		Name:         "ETRS89 / UTM zone 33N",
		ID:           25833,
		Organization: "EPSG",
		OrgID:        25833,
		Definition:   wktETRS89UTM33,
	},
	5973: {
		Name:         "ETRS89 / UTM zone 33 + NN2000 height",
		ID:           5973,
		Organization: "EPSG",
		OrgID:        5973,
		Definition: `COMPD_CS["ETRS89 / UTM zone 33 + NN2000 height",` + wktETRS89UTM33 +
			`,VERT_CS["NN2000 height",VERT_DATUM["Norway Normal Null 2000",2005,AUTHORITY["EPSG","1096"]],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Gravity-related height",UP],AUTHORITY["EPSG","5941"]],AUTHORITY["EPSG","5973"]]`,
	},
}

// LookupSRS returns the SRS for an EPSG code. Unknown codes get an
// "undefined" definition.
func LookupSRS(srid int) SRS {
	for _, s := range RequiredSRS {
		if s.ID == srid {
			return s
		}
	}
	if s, ok := knownSRS[srid]; ok {
		return s
	}
	return SRS{
		Name:         "EPSG:" + strconv.Itoa(srid),
		ID:           srid,
		Organization: "EPSG",
		OrgID:        srid,
		Definition:   "undefined",
	}
}

// Defined reports whether s carries a WKT definition.
func (s SRS) Defined() bool { return s.Definition != "undefined" && s.Definition != "" }
