// Package xmltv provides structures for generating and parsing XMLTV
// documents.
package xmltv

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Time holds a time which is marshalled to and from the XMLTV attribute
// format (YYYYMMDDHHMMSS +ZZZZ).
type Time struct {
	time.Time
}

// MarshalXMLAttr is used to marshal a Go time.Time into the XMLTV format.
func (t *Time) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{
		Name:  name,
		Value: t.Format("20060102150405 -0700"),
	}, nil
}

// UnmarshalXMLAttr is used to unmarshal a time in the XMLTV format to a time.Time.
func (t *Time) UnmarshalXMLAttr(attr xml.Attr) error {
	fmtStr := "20060102150405"
	if strings.Contains(attr.Value, " ") {
		fmtStr = "20060102150405 -0700"
	}
	t1, err := time.Parse(fmtStr, attr.Value)
	if err != nil {
		return err
	}

	*t = Time{t1}
	return nil
}

// TV is the root element.
type TV struct {
	XMLName           xml.Name    `xml:"tv"                                 json:"-"`
	Channels          []Channel   `xml:"channel"                            json:"channels"`
	Programmes        []Programme `xml:"programme"                          json:"programmes"`
	GeneratorInfoName string      `xml:"generator-info-name,attr,omitempty" json:"generatorInfoName,omitempty"`
	GeneratorInfoURL  string      `xml:"generator-info-url,attr,omitempty"  json:"generatorInfoURL,omitempty"`
}

// LoadXML loads the XMLTV XML from f.
func (t *TV) LoadXML(f io.Reader) error {
	decoder := xml.NewDecoder(f)
	decoder.CharsetReader = charset.NewReaderLabel

	return decoder.Decode(&t)
}

// Marshal renders the document, prefixed with the standard XML header.
func (t *TV) Marshal() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(buf)
	if err := encoder.Encode(t); err != nil {
		return nil, err
	}
	if err := encoder.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Channel details of a channel.
type Channel struct {
	XMLName      xml.Name        `xml:"channel"        json:"-"`
	ID           string          `xml:"id,attr"        json:"id,omitempty"`
	DisplayNames []CommonElement `xml:"display-name"   json:"displayNames"`
	Icons        []Icon          `xml:"icon,omitempty" json:"icons,omitempty"`
}

// Programme details of a single programme transmission.
type Programme struct {
	XMLName      xml.Name        `xml:"programme"           json:"-"`
	Channel      string          `xml:"channel,attr"        json:"channel"`
	Start        *Time           `xml:"start,attr"          json:"start"`
	Stop         *Time           `xml:"stop,attr,omitempty" json:"stop,omitempty"`
	Titles       []CommonElement `xml:"title"               json:"titles"`
	Descriptions []CommonElement `xml:"desc,omitempty"      json:"descriptions,omitempty"`
}

// CommonElement element structure that is common, i.e. <title lang="zh">新聞報道</title>
type CommonElement struct {
	Lang  string `xml:"lang,attr,omitempty" json:"lang,omitempty"`
	Value string `xml:",chardata"           json:"value,omitempty"`
}

// Icon associated with the element that contains it.
type Icon struct {
	Source string `xml:"src,attr"              json:"source"`
	Width  int    `xml:"width,attr,omitempty"  json:"width,omitempty"`
	Height int    `xml:"height,attr,omitempty" json:"height,omitempty"`
}
