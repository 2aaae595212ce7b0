package levelgraph

// defaultVideoID is the lesson video used by the built-in map.
const defaultVideoID = "J1Gg3A9hVl0"

// DefaultLevels returns the built-in five-zone map, bottom to top.
func DefaultLevels() []Level {
	return []Level{
		{ID: 1, Order: 1, Name: "Green Forest", Theme: "forest", VideoID: defaultVideoID},
		{ID: 2, Order: 2, Name: "Clean River", Theme: "river", VideoID: defaultVideoID, Prerequisites: []int{1}},
		{ID: 3, Order: 3, Name: "Eco City", Theme: "city", VideoID: defaultVideoID, Prerequisites: []int{2}},
		{ID: 4, Order: 4, Name: "Windy Peak", Theme: "mountain", VideoID: defaultVideoID, Prerequisites: []int{3}},
		{ID: 5, Order: 5, Name: "Space Station", Theme: "sky", VideoID: defaultVideoID, Prerequisites: []int{4}},
	}
}

// Default builds the graph for the built-in map.
func Default() *Graph {
	g, err := New(DefaultLevels())
	if err != nil {
		panic("levelgraph: built-in levels invalid: " + err.Error())
	}
	return g
}
