package osm

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
)

const (
	apiVersion = "0.6"
	generator  = "OSM-Lane-Editor"
)

// document es la raíz <osm> de todos los payloads del API 0.6.
type document struct {
	XMLName   xml.Name      `xml:"osm"`
	Version   string        `xml:"version,attr,omitempty"`
	Generator string        `xml:"generator,attr,omitempty"`
	Changeset *changesetXML `xml:"changeset,omitempty"`
	User      *userXML      `xml:"user,omitempty"`
	Ways      []wayXML      `xml:"way"`
}

type wayXML struct {
	ID        int64    `xml:"id,attr"`
	Version   int64    `xml:"version,attr,omitempty"`
	Changeset int64    `xml:"changeset,attr,omitempty"`
	Nodes     []ndXML  `xml:"nd"`
	Tags      []tagXML `xml:"tag"`
}

type ndXML struct {
	Ref int64 `xml:"ref,attr"`
}

type tagXML struct {
	Key   string `xml:"k,attr"`
	Value string `xml:"v,attr"`
}

type changesetXML struct {
	Tags []tagXML `xml:"tag"`
}

type userXML struct {
	ID             int64  `xml:"id,attr"`
	DisplayName    string `xml:"display_name,attr"`
	AccountCreated string `xml:"account_created,attr"`
}

// sortedTags convierte el mapa en una lista ordenada por clave para que la
// salida sea determinista.
func sortedTags(tags map[string]string) []tagXML {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]tagXML, 0, len(keys))
	for _, k := range keys {
		out = append(out, tagXML{Key: k, Value: tags[k]})
	}
	return out
}

// encode serializa doc con cabecera XML. El escapado de atributos
// (& < > " ' y espacios de control) lo aplica encoding/xml.
func encode(w io.Writer, doc document) error {
	doc.Version = apiVersion
	doc.Generator = generator
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// EncodeWay escribe el documento de actualización de un way: atributos id,
// version y changeset, luego los <nd ref> en orden y después los <tag k v>.
func EncodeWay(w io.Writer, changesetID int64, way *Way) error {
	if way == nil {
		return fmt.Errorf("%w: nil way", ErrMalformed)
	}
	nodes := make([]ndXML, 0, len(way.Nodes))
	for _, ref := range way.Nodes {
		nodes = append(nodes, ndXML{Ref: ref})
	}
	return encode(w, document{Ways: []wayXML{{
		ID:        way.ID,
		Version:   way.Version,
		Changeset: changesetID,
		Nodes:     nodes,
		Tags:      sortedTags(way.Tags),
	}}})
}

// EncodeChangeset escribe el documento de creación de changeset con sus tags de metadata.
func EncodeChangeset(w io.Writer, tags map[string]string) error {
	return encode(w, document{Changeset: &changesetXML{Tags: sortedTags(tags)}})
}

// DecodeWay lee el primer <way> de un documento <osm>.
func DecodeWay(r io.Reader) (*Way, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(doc.Ways) == 0 {
		return nil, fmt.Errorf("%w: no way element", ErrMalformed)
	}
	wx := doc.Ways[0]
	if wx.ID == 0 {
		return nil, fmt.Errorf("%w: way without id", ErrMalformed)
	}
	way := &Way{
		ID:      wx.ID,
		Version: wx.Version,
		Nodes:   make([]int64, 0, len(wx.Nodes)),
		Tags:    make(map[string]string, len(wx.Tags)),
	}
	for _, nd := range wx.Nodes {
		way.Nodes = append(way.Nodes, nd.Ref)
	}
	for _, t := range wx.Tags {
		way.Tags[t.Key] = t.Value
	}
	return way, nil
}

// UserDetails es el perfil del usuario autenticado (/user/details).
type UserDetails struct {
	ID             int64
	DisplayName    string
	AccountCreated string
}

// DecodeUserDetails lee el elemento <user> de /user/details.
func DecodeUserDetails(r io.Reader) (*UserDetails, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.User == nil || doc.User.ID == 0 {
		return nil, fmt.Errorf("%w: no user element", ErrMalformed)
	}
	return &UserDetails{
		ID:             doc.User.ID,
		DisplayName:    doc.User.DisplayName,
		AccountCreated: doc.User.AccountCreated,
	}, nil
}

// wayBytes es un helper para pasar el documento como body de un request.
func wayBytes(changesetID int64, way *Way) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeWay(&buf, changesetID, way); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
