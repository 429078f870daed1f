package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/healthhub/internal/config"
	"github.com/healthhub/internal/content"
	"github.com/healthhub/internal/db"
	"github.com/healthhub/internal/service"
)

// 测试数据生成器：创建管理员账号与一组演示页面。
func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal("读取 .env 失败:", err)
	}
	cfg := config.Load()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	username, password := cfg.SuperRootUserName, cfg.SuperRootPassword
	if username == "" || password == "" {
		username, password = "admin", "admin123"
	}
	if err := db.EnsureUser(db.DB, username, password); err != nil {
		log.Fatal("创建管理员失败:", err)
	}
	fmt.Printf("✅ 管理员: %s\n", username)

	created, err := seedDemoPages(context.Background(), service.NewPageService(db.DB))
	if err != nil {
		log.Fatal("创建演示页面失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("页面: 新建 %d 个，共 %d 个演示页面\n", created, len(demoPages()))
}

// seedDemoPages 创建尚不存在的演示页面，已存在的 slug 跳过。
func seedDemoPages(ctx context.Context, pages *service.PageService) (int, error) {
	created := 0
	for _, input := range demoPages() {
		if _, err := pages.Create(ctx, input); err != nil {
			if errors.Is(err, service.ErrDuplicateSlug) {
				fmt.Printf("页面 %s 已存在，跳过创建\n", input.Slug)
				continue
			}
			return created, fmt.Errorf("create %s: %w", input.Slug, err)
		}
		created++
	}
	return created, nil
}

func demoPages() []service.PageInput {
	return []service.PageInput{
		{
			Slug:            "home",
			Title:           "Home",
			MetaDescription: "Connected care for patients, clinicians and researchers.",
			Published:       true,
			Content: content.New(
				content.Hero{
					Title:     "Healthcare, connected",
					Subtitle:  "Digital tools that shorten the path from diagnosis to recovery.",
					ImageURL:  "https://images.unsplash.com/photo-1576091160550-2173dba999ef?auto=format&fit=crop&w=1600&q=80",
					Alignment: content.AlignCenter,
					Buttons: []content.Link{
						{Label: "Our services", Href: "/p/services"},
						{Label: "Contact us", Href: "/p/contact"},
					},
				},
				content.Cards{
					Title: "What we do",
					Items: []content.Card{
						{Title: "Remote monitoring", Description: "Wearables that report vitals to your care team.", Link: "/p/services"},
						{Title: "Clinical research", Description: "Trials designed with patients from day one."},
						{Title: "Care coordination", Description: "One record shared across every clinic you visit."},
					},
				},
				content.CallToAction{
					Title:   "Partner with us",
					Body:    "Hospitals and clinics can pilot the platform for ninety days.",
					Buttons: []content.Link{{Label: "Start a pilot", Href: "/p/contact"}},
				},
			),
		},
		{
			Slug:            "about-us",
			Title:           "About us",
			MetaDescription: "Who we are and why we build tools for clinicians.",
			Published:       true,
			Content: content.New(
				content.Hero{Title: "About us", Subtitle: "Clinicians and engineers working side by side."},
				content.Text{
					Title: "Our story",
					Body:  "We started in a hospital basement in 2016.\n\n- **Patient first** in every design review\n- Open standards such as *FHIR*\n- Evidence before features",
				},
				content.ImageText{
					Title:     "Our team",
					Body:      "Forty people across medicine, data and design.",
					ImageURL:  "https://images.unsplash.com/photo-1582750433449-648ed127bb54?auto=format&fit=crop&w=1200&q=80",
					Alignment: content.AlignRight,
				},
			),
		},
		{
			Slug:      "services",
			Title:     "Services",
			Published: true,
			Content: content.New(
				content.Hero{Title: "Services", Alignment: content.AlignLeft},
				content.Text{Body: "| Service | Availability |\n| --- | --- |\n| Telehealth | 24/7 |\n| Lab results | Same day |"},
			),
		},
		{
			Slug:  "contact",
			Title: "Contact",
			Content: content.New(
				content.Hero{Title: "Contact", Subtitle: "This page is still being drafted."},
			),
		},
	}
}
