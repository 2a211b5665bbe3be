// Package policy ships the built-in guard rules for the stock
// short-video applications. The store is reseeded from this set rather
// than hardcoding rules in the engine, so users can edit or disable
// individual rules afterwards.
package policy

import (
	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// Defaults applied to every built-in rule; per-app records in the
// monitored-app store override both at match time.
const (
	DefaultScrollThreshold = 10
	DefaultIntervalMs      = 500
)

func rule(packageID string, kind domain.EventKind, screenID, elementID string, useSymbol bool, symbol, remark string) domain.GuardRule {
	return domain.GuardRule{
		PackageID:       packageID,
		EventKind:       kind,
		ScreenID:        screenID,
		ElementID:       elementID,
		UseSymbolMatch:  useSymbol,
		Symbol:          symbol,
		Enabled:         true,
		IntervalMs:      DefaultIntervalMs,
		ScrollThreshold: DefaultScrollThreshold,
		Remark:          remark,
	}
}

// DefaultRules returns the built-in rule set. Apps with a stable
// element id for the author label use the element-id strategy; feeds
// without one fall back to searching for the "@" handle marker.
func DefaultRules() []domain.GuardRule {
	return []domain.GuardRule{
		// WeChat Channels
		rule("com.tencent.mm", domain.EventScroll,
			"com.tencent.mm.plugin.finder.ui.FinderHomeAffinityUI",
			"", false, "", "Channels home feed"),
		rule("com.tencent.mm", domain.EventScroll,
			"com.tencent.mm.plugin.finder.ui.FinderShareFeedRelUI",
			"", false, "", "Channels shared feed"),

		// Douyin exposes a title element id on content changes.
		rule("com.ss.android.ugc.aweme", domain.EventContentChanged,
			"", "com.ss.android.ugc.aweme:id/title",
			false, "", "Douyin short video"),

		// Xiaohongshu
		rule("com.xingin.xhs", domain.EventScroll,
			"com.xingin.matrix.detail.activity.DetailFeedActivity",
			"com.xingin.xhs:id/matrixNickNameView",
			false, "", "Xiaohongshu detail feed"),
		rule("com.xingin.xhs", domain.EventScroll,
			"com.xingin.xhs.index.v2.IndexActivityV2",
			"com.xingin.xhs:id/matrixNickNameView",
			false, "", "Xiaohongshu trending page"),

		// Bilibili
		rule("tv.danmaku.bili", domain.EventScroll,
			"com.bilibili.video.story.StoryVideoActivity",
			"tv.danmaku.bili:id/name",
			false, "", "Bilibili story feed"),

		// Kuaishou
		rule("com.smile.gifmaker", domain.EventScroll,
			"com.yxcorp.gifshow.HomeActivity",
			"", true, "@", "Kuaishou featured page"),
		rule("com.smile.gifmaker", domain.EventScroll,
			"com.yxcorp.gifshow.detail.PhotoDetailActivity",
			"com.smile.gifmaker:id/username_group",
			false, "", "Kuaishou photo detail"),

		// Taobao
		rule("com.taobao.taobao", domain.EventScroll,
			"", "com.taobao.taobao:id/video_host",
			false, "", "Taobao short video"),

		// Alipay
		rule("com.eg.android.AlipayGphone", domain.EventScroll,
			"", "com.alipay.android.living.dynamic:id/author_title",
			false, "", "Alipay life feed"),

		// Weibo
		rule("com.sina.weibo", domain.EventScroll,
			"", "com.sina.weibo:id/nickname_new_ui_message",
			false, "", "Weibo timeline"),

		// QZone
		rule("com.tencent.mobileqq", domain.EventScroll,
			"com.tencent.mobileqq.activity.QPublicTransFragmentActivity",
			"", false, "", "QZone feed"),

		// iQiyi has neither a stable element id nor a reliable screen.
		rule("com.qiyi.video", domain.EventScroll,
			"", "", true, "@", "iQiyi short video"),

		// Pinduoduo
		rule("com.xunmeng.pinduoduo", domain.EventScroll,
			"", "", true, "@", "Pinduoduo feed"),

		// Hongguo short drama
		rule("com.phoenix.read", domain.EventScroll,
			"com.dragon.read.component.shortvideo.impl.ShortSeriesActivity",
			"", false, "", "Hongguo short drama"),
	}
}

// Seed clears the rule table and installs the built-in set.
func Seed(store domain.RuleStore, logger *zap.Logger) error {
	if err := store.DeleteAll(); err != nil {
		return err
	}
	rules := DefaultRules()
	if err := store.InsertAll(rules); err != nil {
		return err
	}
	logger.Info("seeded default guard rules", zap.Int("count", len(rules)))
	return nil
}
