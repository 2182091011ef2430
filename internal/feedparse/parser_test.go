package feedparse

import (
	"errors"
	"testing"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Homelab</title>
  <item>
    <title><![CDATA[Building a <em>quiet</em> NUC cluster &amp; more]]></title>
    <link>https://example.com/nuc-cluster</link>
    <pubDate>Mon, 06 Oct 2026 10:00:00 +0000</pubDate>
    <description>short summary</description>
    <content:encoded><![CDATA[<p>Full <b>body</b></p>]]></content:encoded>
    <media:thumbnail url="https://example.com/thumb.jpg"/>
  </item>
  <item>
    <title>Plain content element</title>
    <link>https://example.com/plain</link>
    <content>&lt;p&gt;generic body&lt;/p&gt;</content>
    <description>fallback description</description>
    <enclosure url="https://example.com/cover.png" length="1" type="image/png"/>
  </item>
  <item>
    <title>Description only</title>
    <link>https://example.com/desc</link>
    <description>&lt;p&gt;just the description&lt;/p&gt;</description>
    <media:content url="https://example.com/video.mp4" type="video/mp4"/>
    <media:content url="https://example.com/still.jpg" medium="image"/>
  </item>
  <item>
    <title></title>
    <link>https://example.com/untitled</link>
  </item>
  <item>
    <title>No link at all</title>
  </item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/">
  <title>VMware notes</title>
  <entry>
    <title type="html">vSphere 9 &amp;amp; ESXi</title>
    <link rel="self" href="https://example.com/self"/>
    <link rel="alternate" href="https://example.com/vsphere-9"/>
    <published>2026-09-01T08:00:00Z</published>
    <updated>2026-09-02T08:00:00Z</updated>
    <summary>summary text</summary>
    <content type="html">&lt;p&gt;atom body&lt;/p&gt;</content>
    <media:thumbnail url="https://example.com/atom-thumb.jpg"/>
  </entry>
  <entry>
    <title>Summary only</title>
    <link href="https://example.com/summary-only"/>
    <updated>2026-09-03T08:00:00Z</updated>
    <summary>only a summary</summary>
    <link rel="enclosure" type="image/jpeg" href="https://example.com/enc.jpg"/>
  </entry>
  <entry>
    <title>Missing link</title>
    <summary>dropped</summary>
  </entry>
</feed>`

func TestParseRSS(t *testing.T) {
	items, err := Parse([]byte(rssFixture))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got: %d", len(items))
	}

	first := items[0]
	if first.Title != "Building a quiet NUC cluster & more" {
		t.Errorf("Unexpected title: %q", first.Title)
	}
	if first.Link != "https://example.com/nuc-cluster" {
		t.Errorf("Unexpected link: %q", first.Link)
	}
	if first.Body != "<p>Full <b>body</b></p>" {
		t.Errorf("Expected content:encoded body, got: %q", first.Body)
	}
	if first.ImageURL != "https://example.com/thumb.jpg" {
		t.Errorf("Expected media thumbnail, got: %q", first.ImageURL)
	}
	if first.Published == "" {
		t.Error("Expected pubDate to be kept")
	}

	if items[1].Body != "<p>generic body</p>" {
		t.Errorf("Expected plain content element to win over description, got: %q", items[1].Body)
	}
	if items[1].ImageURL != "https://example.com/cover.png" {
		t.Errorf("Expected image enclosure, got: %q", items[1].ImageURL)
	}

	if items[2].Body != "<p>just the description</p>" {
		t.Errorf("Expected description body, got: %q", items[2].Body)
	}
	if items[2].ImageURL != "https://example.com/still.jpg" {
		t.Errorf("Expected image media:content, got: %q", items[2].ImageURL)
	}
}

func TestParseAtomFallback(t *testing.T) {
	items, err := Parse([]byte(atomFixture))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(items))
	}

	first := items[0]
	if first.Title != "vSphere 9 & ESXi" {
		t.Errorf("Unexpected title: %q", first.Title)
	}
	if first.Link != "https://example.com/vsphere-9" {
		t.Errorf("Expected alternate link, got: %q", first.Link)
	}
	if first.Body != "<p>atom body</p>" {
		t.Errorf("Expected content body, got: %q", first.Body)
	}
	if first.Published != "2026-09-01T08:00:00Z" {
		t.Errorf("Expected published date, got: %q", first.Published)
	}
	if first.ImageURL != "https://example.com/atom-thumb.jpg" {
		t.Errorf("Unexpected image: %q", first.ImageURL)
	}

	second := items[1]
	if second.Body != "only a summary" {
		t.Errorf("Expected summary body, got: %q", second.Body)
	}
	if second.Published != "2026-09-03T08:00:00Z" {
		t.Errorf("Expected updated as date fallback, got: %q", second.Published)
	}
	if second.ImageURL != "https://example.com/enc.jpg" {
		t.Errorf("Expected enclosure link image, got: %q", second.ImageURL)
	}
}

func TestParseUnreadable(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "html page", payload: "<html><body>not a feed</body></html>"},
		{name: "garbage", payload: "}{ definitely not xml"},
		{name: "empty", payload: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Parse([]byte(tt.payload))
			if len(items) != 0 {
				t.Errorf("Expected no items, got: %d", len(items))
			}
			if !errors.Is(err, ErrUnreadable) {
				t.Errorf("Expected ErrUnreadable, got: %v", err)
			}
		})
	}
}

func TestParseEmptyChannel(t *testing.T) {
	items, err := Parse([]byte(`<rss version="2.0"><channel><title>x</title></channel></rss>`))
	if err != nil {
		t.Errorf("Expected empty rss to be readable, got: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no items, got: %d", len(items))
	}
}
