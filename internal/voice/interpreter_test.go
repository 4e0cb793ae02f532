package voice_test

import (
	"testing"

	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/internal/voice"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInterpreter(t *testing.T) {
	Convey("Given the default phrase table", t, func() {
		in := voice.NewInterpreter()

		cases := []struct {
			phrase string
			effect string
			ok     bool
		}{
			{"今のナイス！", model.EffectStar, true},
			{"みんなありがとう", model.EffectLove, true},
			{"よっしゃー", model.EffectSparkle, true},
			{"これはやべぇ", model.EffectBubble, true},
			{"やばいやばい", model.EffectBubble, true},
			{"ありがとうナイス", model.EffectStar, true},
			{"こんにちは", "", false},
			{"", "", false},
		}
		for _, tc := range cases {
			effect, ok := in.Match(tc.phrase)
			So(ok, ShouldEqual, tc.ok)
			So(effect, ShouldEqual, tc.effect)
		}
	})

	Convey("Given a custom table", t, func() {
		in := voice.NewInterpreter(voice.Command{Keywords: []string{"gg"}, Effect: model.EffectFireworks})

		Convey("Then only its keywords match", func() {
			effect, ok := in.Match("gg wp")
			So(ok, ShouldBeTrue)
			So(effect, ShouldEqual, model.EffectFireworks)
			_, ok = in.Match("ナイス")
			So(ok, ShouldBeFalse)
		})
	})
}
