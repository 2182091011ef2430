package config

import "github.com/minicomputer-shop/blog-harvester/internal/domain"

// DefaultFeeds returns the built-in homelab, VMware and self-hosting blogs.
func DefaultFeeds() []domain.FeedSource {
	return []domain.FeedSource{
		{Name: "TinkerTry", URL: "https://tinkertry.com/feed", Tag: "homelab"},
		{Name: "WilliamLam.com", URL: "https://williamlam.com/feed", Tag: "vmware"},
		{Name: "b3n.org", URL: "https://b3n.org/feed/", Tag: "homelab"},
		{Name: "Chrisdooks.com", URL: "https://chrisdooks.com/category/homelab/feed/", Tag: "vmware"},
		{Name: "Cavelab Blog", URL: "https://blog.cavelab.dev/index.xml", Tag: "homelab"},
		{Name: "Domalab", URL: "https://domalab.com/feed/", Tag: "vmware"},
		{Name: "mpoore.io", URL: "https://mpoore.io/index.xml", Tag: "vmware"},
		{Name: "Spencer's Blog", URL: "https://blog.filegarden.net/feed/", Tag: "selfhosted"},
		{Name: "Zuthof.nl Blog", URL: "https://blog.zuthof.nl/category/homelab/feed/", Tag: "vmware"},
		{Name: "dlford.io", URL: "https://www.dlford.io/blog/index.xml", Tag: "homelab"},
		{Name: "NetworkProfile.org", URL: "https://blog.networkprofile.org/rss/", Tag: "networking"},
		{Name: "TheOrangeOne", URL: "https://theorangeone.net/feed/", Tag: "selfhosted"},
		{Name: "Chris Bergeron's", URL: "https://chrisbergeron.com/rss2.xml", Tag: "homelab"},
		{Name: "DBplatz Blog", URL: "https://blog.dbplatz.com/tag/homelab/rss/", Tag: "homelab"},
		{Name: "Apalrd's Adventures", URL: "https://www.apalrd.net/tags/homelab/index.xml", Tag: "homelab"},
	}
}
