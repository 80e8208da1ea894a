package entity

// Post is static demo content used to check front-end wiring.
type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

var DemoPosts = []Post{
	{
		ID:    1,
		Title: "Introduction to Go",
		Body:  "Go is a statically typed, compiled language designed at Google.",
	},
	{
		ID:    2,
		Title: "RESTful APIs with Gorilla",
		Body:  "Gorilla mux is a powerful URL router and dispatcher for building Go HTTP services.",
	},
	{
		ID:    3,
		Title: "Middleware in Go",
		Body:  "Middleware is a powerful concept that allows you to add functionality to your request handling pipeline.",
	},
	{
		ID:    4,
		Title: "JSON Serialization",
		Body:  "Go provides excellent support for encoding and decoding JSON with the encoding/json package.",
	},
	{
		ID:    5,
		Title: "Error Handling Patterns",
		Body:  "Proper error handling is crucial for building robust and maintainable applications.",
	},
}
