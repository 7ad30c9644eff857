package plex

// container is the generic PMS response envelope.
type container struct {
	MediaContainer mediaContainer `json:"MediaContainer"`
}

type mediaContainer struct {
	Size              int        `json:"size"`
	MachineIdentifier string     `json:"machineIdentifier"`
	Metadata          []Metadata `json:"Metadata"`
	Server            []Server   `json:"Server"`
}

// Metadata is one media entry as the server reports it.
type Metadata struct {
	RatingKey        string `json:"ratingKey"`
	Type             string `json:"type"`
	Title            string `json:"title"`
	GrandparentTitle string `json:"grandparentTitle"`
	TitleSort        string `json:"titleSort"`
	Index            int    `json:"index"`
	ParentIndex      int    `json:"parentIndex"`
	ViewCount        int    `json:"viewCount"`
	ViewOffset       int64  `json:"viewOffset"`
}

// Server is one controllable player client advertised by /clients.
type Server struct {
	Name                 string `json:"name"`
	MachineIdentifier    string `json:"machineIdentifier"`
	Product              string `json:"product"`
	ProtocolCapabilities string `json:"protocolCapabilities"`
}
