package platforms

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

const nowTVDirectoryFixture = `
<html><body>
  <div class="tv-guide-s">
    <div class="product-item">
      <p class="channel">CH331</p>
      <p class="img-name">Now爆谷台</p>
      <img src="https://images.example.com/331.png">
    </div>
    <div class="product-item">
      <p class="channel">CH332</p>
      <p class="img-name">Now星影台</p>
    </div>
    <div class="product-item">
      <p class="channel"></p>
      <p class="img-name">broken entry</p>
    </div>
  </div>
</body></html>`

func TestParseNowTVChannels(t *testing.T) {
	root, err := parseHTML(strings.NewReader(nowTVDirectoryFixture))
	if err != nil {
		t.Fatal(err)
	}

	got := parseNowTVChannels(root)

	want := []Channel{
		{ID: "331", Name: "Now爆谷台", Platform: "nowtv", Logo: "https://images.example.com/331.png"},
		{ID: "332", Name: "Now星影台", Platform: "nowtv"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("\texpected: %# v\n\t\tactual:   %# v\n", pretty.Formatter(want), pretty.Formatter(got))
	}
}
