package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBannerID(t *testing.T) {
	assert.Equal(t, "course_banner_1", BannerID("course_banner_1"))
	assert.Equal(t, "course_banner_1", BannerID("_course_banner_1"))
	assert.Equal(t, "course_banner_1", BannerID("__course_banner_1"))
	assert.Equal(t, "", BannerID("_"))

	assert.True(t, (&BannerItem{ItemID: "course_banner_1", Type: BannerShown}).Active())
	assert.False(t, (&BannerItem{ItemID: "_course_banner_1", Type: BannerHidden}).Active())
}
