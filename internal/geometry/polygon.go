package geometry

import "github.com/paulmach/orb"

// PointInPolygon reports whether a point lies inside a polygon boundary
// using ray-casting parity: a horizontal ray from the point toggles a flag
// at every edge crossing. The ring is treated as implicitly closed (the last
// vertex connects back to the first). Degenerate or self-intersecting rings
// are not validated; the result is whatever parity yields.
func PointInPolygon(point orb.Point, polygon orb.Ring) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		xi, yi := polygon[i][0], polygon[i][1]
		xj, yj := polygon[j][0], polygon[j][1]

		intersects := (yi > point[1]) != (yj > point[1]) &&
			point[0] < (xj-xi)*(point[1]-yi)/(yj-yi)+xi
		if intersects {
			inside = !inside
		}
		j = i
	}
	return inside
}

// RingFromLatLng builds an orb.Ring from {lat,lng} vertex pairs, converting
// to orb's {lng,lat} point order.
func RingFromLatLng(vertices [][2]float64) orb.Ring {
	ring := make(orb.Ring, 0, len(vertices))
	for _, v := range vertices {
		ring = append(ring, orb.Point{v[1], v[0]})
	}
	return ring
}
