package progression

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BadgeInfo is the display metadata for one unlockable badge.
type BadgeInfo struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
	Desc  string `yaml:"desc"`
}

// BadgeCatalog maps badge keys to their display metadata. Unknown keys fall
// back to the raw key so a newer backend badge still renders.
type BadgeCatalog struct {
	badges map[string]BadgeInfo
	order  []string
}

// BuiltinBadges returns the catalog shipped with the client.
func BuiltinBadges() *BadgeCatalog {
	c := &BadgeCatalog{badges: map[string]BadgeInfo{}}
	c.add(BadgeInfo{Key: "first_task", Title: "First Submission!", Desc: "You just completed your very first task!"})
	c.add(BadgeInfo{Key: "streak_3", Title: "3-Day Streak!", Desc: "You've submitted tasks 3 days in a row!"})
	c.add(BadgeInfo{Key: "level_5", Title: "Level 5 Achieved!", Desc: "You've reached Level 5 - amazing work!"})
	return c
}

// LoadBadgeCatalog reads a YAML badge list from path, for deployments that
// extend the builtin set. The file fully replaces the builtin catalog.
func LoadBadgeCatalog(path string) (*BadgeCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Badges []BadgeInfo `yaml:"badges"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse badge catalog %s: %w", path, err)
	}
	if len(doc.Badges) == 0 {
		return nil, fmt.Errorf("badge catalog %s lists no badges", path)
	}
	c := &BadgeCatalog{badges: map[string]BadgeInfo{}}
	for _, info := range doc.Badges {
		if info.Key == "" {
			return nil, fmt.Errorf("badge catalog %s: badge without key", path)
		}
		c.add(info)
	}
	return c, nil
}

func (c *BadgeCatalog) add(info BadgeInfo) {
	if _, ok := c.badges[info.Key]; !ok {
		c.order = append(c.order, info.Key)
	}
	c.badges[info.Key] = info
}

// Lookup resolves a badge key. Unknown keys yield the key as title and a
// generic description, never a miss.
func (c *BadgeCatalog) Lookup(key string) BadgeInfo {
	if info, ok := c.badges[key]; ok {
		return info
	}
	return BadgeInfo{Key: key, Title: key, Desc: "Badge unlocked!"}
}

// Keys lists the catalog keys in declaration order.
func (c *BadgeCatalog) Keys() []string {
	return append([]string(nil), c.order...)
}
