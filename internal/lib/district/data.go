package district

import "github.com/dpup/wayfinder/internal/lib/geo"

// sriLankaCenters lists the nominal center of each of the 25 districts.
var sriLankaCenters = []Center{
	{Name: "Colombo", Point: geo.Point{Latitude: 6.9271, Longitude: 79.8612}},
	{Name: "Gampaha", Point: geo.Point{Latitude: 7.0873, Longitude: 79.9990}},
	{Name: "Kalutara", Point: geo.Point{Latitude: 6.5854, Longitude: 79.9607}},
	{Name: "Kandy", Point: geo.Point{Latitude: 7.2906, Longitude: 80.6337}},
	{Name: "Matale", Point: geo.Point{Latitude: 7.4675, Longitude: 80.6234}},
	{Name: "Nuwara Eliya", Point: geo.Point{Latitude: 6.9497, Longitude: 80.7891}},
	{Name: "Galle", Point: geo.Point{Latitude: 6.0535, Longitude: 80.2210}},
	{Name: "Matara", Point: geo.Point{Latitude: 5.9549, Longitude: 80.5550}},
	{Name: "Hambantota", Point: geo.Point{Latitude: 6.1241, Longitude: 81.1185}},
	{Name: "Jaffna", Point: geo.Point{Latitude: 9.6615, Longitude: 80.0255}},
	{Name: "Kilinochchi", Point: geo.Point{Latitude: 9.3803, Longitude: 80.3770}},
	{Name: "Mannar", Point: geo.Point{Latitude: 8.9810, Longitude: 79.9044}},
	{Name: "Vavuniya", Point: geo.Point{Latitude: 8.7514, Longitude: 80.4971}},
	{Name: "Mullaitivu", Point: geo.Point{Latitude: 9.2671, Longitude: 80.8142}},
	{Name: "Batticaloa", Point: geo.Point{Latitude: 7.7310, Longitude: 81.6747}},
	{Name: "Ampara", Point: geo.Point{Latitude: 7.2912, Longitude: 81.6724}},
	{Name: "Trincomalee", Point: geo.Point{Latitude: 8.5874, Longitude: 81.2152}},
	{Name: "Kurunegala", Point: geo.Point{Latitude: 7.4863, Longitude: 80.3623}},
	{Name: "Puttalam", Point: geo.Point{Latitude: 8.0362, Longitude: 79.8283}},
	{Name: "Anuradhapura", Point: geo.Point{Latitude: 8.3114, Longitude: 80.4037}},
	{Name: "Polonnaruwa", Point: geo.Point{Latitude: 7.9403, Longitude: 81.0188}},
	{Name: "Badulla", Point: geo.Point{Latitude: 6.9934, Longitude: 81.0550}},
	{Name: "Monaragala", Point: geo.Point{Latitude: 6.8728, Longitude: 81.3507}},
	{Name: "Ratnapura", Point: geo.Point{Latitude: 6.6828, Longitude: 80.3992}},
	{Name: "Kegalle", Point: geo.Point{Latitude: 7.2513, Longitude: 80.3464}},
}

// Default returns a gazetteer over the Sri Lankan district centers.
func Default() *Gazetteer {
	return NewGazetteer(sriLankaCenters)
}
